package agendafile

import (
	"context"
	"fmt"
	"os"

	"github.com/mcdev12/streamagenda/go/internal/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of an offline agenda.
//
//	room: demo
//	items:
//	  - id: intro-poll
//	    timeStamp: 60
//	    action: Poll
//	    details:
//	      item: Which topic next?
//	      wallets: [Go, Rust]
type File struct {
	Room  string              `yaml:"room"`
	Items []models.AgendaItem `yaml:"items"`
}

// Source serves an agenda from a YAML file.
type Source struct {
	path string
}

// NewSource creates a source reading path on every fetch.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// FetchAgenda loads the file. Items are returned for any room unless the file names one.
func (s *Source) FetchAgenda(_ context.Context, roomName string) ([]models.AgendaItem, error) {
	file, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	if file.Room != "" && file.Room != roomName {
		return nil, fmt.Errorf("agenda file %s is for room %q, not %q", s.path, file.Room, roomName)
	}

	items := make([]models.AgendaItem, 0, len(file.Items))
	for _, item := range file.Items {
		item = item.Normalize()
		if err := item.Validate(); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("skipping invalid agenda entry")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Load reads and parses an agenda file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agenda file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse agenda file: %w", err)
	}
	return &file, nil
}
