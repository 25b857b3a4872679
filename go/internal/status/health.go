package status

import "github.com/mcdev12/streamagenda/go/internal/agenda"

// HealthStatus reports whether the follower is in step with its room.
type HealthStatus struct {
	Healthy  bool     `json:"healthy"`
	Synced   bool     `json:"synced"`
	Expired  bool     `json:"expired"`
	Elapsed  int      `json:"elapsed_sec"`
	Executed int      `json:"executed"`
	Errors   []string `json:"errors"`
}

// Check derives the health of a session from its state.
func Check(state agenda.State) HealthStatus {
	status := HealthStatus{
		Healthy:  true,
		Synced:   state.Synced,
		Expired:  state.Expired,
		Elapsed:  state.Elapsed,
		Executed: len(state.Executed),
		Errors:   []string{},
	}

	if !state.Synced {
		status.Healthy = false
		status.Errors = append(status.Errors, "waiting for initial sync")
	}
	if state.Expired {
		status.Healthy = false
		status.Errors = append(status.Errors, "session clock passed the one hour ceiling")
	}

	return status
}
