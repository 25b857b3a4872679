package agendafile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoAgenda = `
room: demo
items:
  - id: intro-poll
    timeStamp: 60
    action: Poll
    details:
      item: Which topic next?
      wallets: [Go, Rust]
  - id: ama
    timeStamp: 300
    action: Q_A
    details:
      item: Ask me anything
  - id: broken
    timeStamp: 7200
    action: Custom
`

func writeAgenda(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agenda.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSourceFetchAgenda(t *testing.T) {
	src := NewSource(writeAgenda(t, demoAgenda))

	items, err := src.FetchAgenda(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "intro-poll", items[0].ID)
	assert.Equal(t, 60, items[0].TimeStamp)
	assert.Equal(t, []string{"Go", "Rust"}, items[0].Details.Wallets)
	assert.Equal(t, models.ActionKindQA, items[1].Action)
}

func TestSourceRejectsOtherRoom(t *testing.T) {
	src := NewSource(writeAgenda(t, demoAgenda))

	_, err := src.FetchAgenda(context.Background(), "another-room")
	assert.Error(t, err)
}

func TestSourceWithoutRoomServesAnyRoom(t *testing.T) {
	src := NewSource(writeAgenda(t, "items:\n  - id: a\n    timeStamp: 5\n    action: Custom\n"))

	items, err := src.FetchAgenda(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeAgenda(t, "items: [unclosed"))
	assert.Error(t, err)
}
