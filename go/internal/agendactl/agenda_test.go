package agendactl

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--api-url", apiURL}, args...))

	err := root.Execute()
	return stdout.String(), err
}

type agendaRequest struct {
	Agendas []struct {
		TimeStamp int    `json:"timeStamp"`
		Action    string `json:"action"`
		Details   struct {
			Item    string   `json:"item"`
			Wallets []string `json:"wallets"`
		} `json:"details"`
	} `json:"agendas"`
}

func TestShowListsAgendaInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/livestream/match-night", r.URL.Path)
		w.Write([]byte(`{"callType":"livestream","agenda":[
			{"id":"b","timeStamp":600,"action":"Giveaway","details":{"item":"Jersey","wallets":[]}},
			{"id":"a","timeStamp":90,"action":"Q_A","details":{"item":"Ask the coach","wallets":[]}}
		]}`))
	}))
	defer srv.Close()

	out, err := executeCLI(t, srv.URL, "show", "match-night")
	require.NoError(t, err)
	assert.Contains(t, out, "room: match-night (livestream)")
	assert.Less(t, bytes.Index([]byte(out), []byte("01:30")), bytes.Index([]byte(out), []byte("10:00")))
	assert.Contains(t, out, "Ask the coach")
}

func TestAddSendsDraft(t *testing.T) {
	var got agendaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/agenda/ls-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"id":"new-1","timeStamp":150,"action":"Poll","details":{"item":"MVP?","wallets":["A","B"]}}]`))
	}))
	defer srv.Close()

	out, err := executeCLI(t, srv.URL, "add", "ls-1", "--at", "2:30", "--action", "Poll", "--item", "MVP?", "--option", "A", "--option", "B")
	require.NoError(t, err)
	assert.Contains(t, out, "Added new-1 at 02:30")

	require.Len(t, got.Agendas, 1)
	assert.Equal(t, 150, got.Agendas[0].TimeStamp)
	assert.Equal(t, "Poll", got.Agendas[0].Action)
	assert.Equal(t, []string{"A", "B"}, got.Agendas[0].Details.Wallets)
}

func TestAddRejectsBadInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	_, err := executeCLI(t, srv.URL, "add", "ls-1", "--at", "61:00", "--action", "Poll")
	assert.Error(t, err)

	_, err = executeCLI(t, srv.URL, "add", "ls-1", "--at", "30", "--action", "Raffle")
	assert.Error(t, err)

	_, err = executeCLI(t, srv.URL, "add", "ls-1", "--action", "Poll")
	assert.Error(t, err)
}

func TestUpdateAndDelete(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := executeCLI(t, srv.URL, "update", "a1", "--at", "45", "--action", "Q&A", "--item", "AMA")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated a1 to 00:45")

	out, err = executeCLI(t, srv.URL, "delete", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted a1")

	assert.Equal(t, []string{"PUT /agenda/a1", "DELETE /agenda/a1"}, calls)
}

func TestImportUploadsAgendaFile(t *testing.T) {
	var got agendaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"id":"1","timeStamp":60,"action":"Poll","details":{"item":"x","wallets":[]}},{"id":"2","timeStamp":300,"action":"Q_A","details":{"item":"y","wallets":[]}}]`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "agenda.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - id: intro-poll
    timeStamp: 60
    action: Poll
    details:
      item: Which topic next?
      wallets: [Go, Rust]
  - id: ama
    timeStamp: 300
    action: Q&A
    details:
      item: Ask me anything
`), 0o600))

	out, err := executeCLI(t, srv.URL, "import", "ls-1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 items into ls-1")

	require.Len(t, got.Agendas, 2)
	assert.Equal(t, "Q_A", got.Agendas[1].Action)
	assert.Equal(t, []string{"Go", "Rust"}, got.Agendas[0].Details.Wallets)
}

func TestImportRejectsCollidingOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - {id: a, timeStamp: 60, action: Poll}
  - {id: b, timeStamp: 60, action: Custom}
`), 0o600))

	_, err := executeCLI(t, "http://127.0.0.1:0", "import", "ls-1", path)
	assert.Error(t, err)
}

func TestParseOffset(t *testing.T) {
	tests := map[string]int{"0": 0, "90": 90, "1:30": 90, " 59:59 ": 3599}
	for in, want := range tests {
		got, err := parseOffset(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "1:75", "3600", "-5", "x:10", "2:-5", "-0:30", "+1:00", "1:+5", ":30", "1:"} {
		_, err := parseOffset(in)
		assert.Error(t, err, in)
	}
}
