package agendactl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcdev12/streamagenda/go/clients/stream_api_client"
	"github.com/mcdev12/streamagenda/go/internal/agenda"
	"github.com/mcdev12/streamagenda/go/internal/agendafile"
	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/spf13/cobra"
)

type clientFunc func() *stream_api_client.StreamApiClient

// draftFlags are the item fields shared by add and update.
type draftFlags struct {
	at      string
	action  string
	item    string
	options []string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.at, "at", "", "offset into the session, as seconds or mm:ss")
	cmd.Flags().StringVar(&f.action, "action", "", "Poll, Transaction, Giveaway, Q&A or Custom")
	cmd.Flags().StringVar(&f.item, "item", "", "title or description of the item")
	cmd.Flags().StringArrayVar(&f.options, "option", nil, "poll option or wallet (repeatable)")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.MarkFlagRequired("action")
}

func (f *draftFlags) draft() (stream_api_client.AgendaDraft, error) {
	offset, err := parseOffset(f.at)
	if err != nil {
		return stream_api_client.AgendaDraft{}, err
	}
	kind, err := models.ParseActionKind(f.action)
	if err != nil {
		return stream_api_client.AgendaDraft{}, err
	}
	return stream_api_client.AgendaDraft{
		TimeStamp: offset,
		Action:    kind,
		Item:      f.item,
		Wallets:   f.options,
	}, nil
}

func newShowCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show <room>",
		Short: "List the agenda of a livestream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := client().GetLivestream(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			items := agenda.NewAgenda(stream.Agenda).Items()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "room: %s (%s)\n", stream.RoomName, stream.CallType)
			if len(items) == 0 {
				_, _ = fmt.Fprintln(out, "agenda: empty")
				return nil
			}
			for _, item := range items {
				_, _ = fmt.Fprintf(out, "%s  %-11s  %s  %s\n", formatOffset(item.TimeStamp), item.Action, item.ID, item.Details.Item)
			}
			return nil
		},
	}
}

func newAddCmd(client clientFunc) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "add <stream-id>",
		Short: "Add an item to a livestream agenda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := flags.draft()
			if err != nil {
				return err
			}
			items, err := client().AddAgenda(cmd.Context(), args[0], []stream_api_client.AgendaDraft{draft})
			if err != nil {
				return err
			}
			for _, item := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s at %s\n", item.ID, formatOffset(item.TimeStamp))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newUpdateCmd(client clientFunc) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "update <agenda-id>",
		Short: "Reschedule or rewrite an agenda item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := flags.draft()
			if err != nil {
				return err
			}
			if err := client().UpdateAgenda(cmd.Context(), args[0], draft); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s to %s\n", args[0], formatOffset(draft.TimeStamp))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agenda-id>",
		Short: "Delete an agenda item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().DeleteAgenda(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import <stream-id> <agenda.yaml>",
		Short: "Upload every item of an agenda file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := agendafile.Load(args[1])
			if err != nil {
				return err
			}

			// The backend assigns ids, so only offset collisions need checking here.
			seen := make(map[int]string, len(file.Items))
			drafts := make([]stream_api_client.AgendaDraft, 0, len(file.Items))
			for _, item := range file.Items {
				kind, err := models.ParseActionKind(string(item.Action))
				if err != nil {
					return fmt.Errorf("%s: %w", item.ID, err)
				}
				if item.TimeStamp < 0 || item.TimeStamp >= models.SessionCeilingSeconds {
					return fmt.Errorf("%s: %w: offset %ds outside the session", item.ID, models.ErrInvalidItem, item.TimeStamp)
				}
				if other, ok := seen[item.TimeStamp]; ok {
					return fmt.Errorf("%s and %s: %w", other, item.ID, agenda.ErrOffsetTaken)
				}
				seen[item.TimeStamp] = item.ID
				drafts = append(drafts, stream_api_client.AgendaDraft{
					TimeStamp: item.TimeStamp,
					Action:    kind,
					Item:      item.Details.Item,
					Wallets:   item.Details.Wallets,
				})
			}

			items, err := client().AddAgenda(cmd.Context(), args[0], drafts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items into %s\n", len(items), args[0])
			return nil
		},
	}
}

// parseOffset reads "90" or "1:30" as seconds into the session.
func parseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("offset is required")
	}

	var seconds int
	if minutes, secs, ok := strings.Cut(s, ":"); ok {
		m, err := unsigned(minutes)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q", s)
		}
		sec, err := unsigned(secs)
		if err != nil || sec >= 60 {
			return 0, fmt.Errorf("invalid offset %q", s)
		}
		seconds = m*60 + sec
	} else {
		n, err := unsigned(s)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q", s)
		}
		seconds = n
	}

	if seconds < 0 || seconds >= models.SessionCeilingSeconds {
		return 0, fmt.Errorf("offset %q is outside the one hour session", s)
	}
	return seconds, nil
}

// unsigned parses a run of decimal digits; signs are rejected.
func unsigned(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not an unsigned number", s)
		}
	}
	return strconv.Atoi(s)
}

func formatOffset(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
