package subscriptions

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source loads the full set of configured subscriptions. Implementations are
// the static config-derived list, a YAML file, and a SQLite table.
type Source interface {
	Load(ctx context.Context) ([]*Subscription, error)
}

// StaticSource serves a fixed list, typically assembled from configuration.
type StaticSource struct {
	subs []*Subscription
}

// NewStaticSource copies and compiles the given subscriptions.
func NewStaticSource(subs []*Subscription) (*StaticSource, error) {
	for _, s := range subs {
		if err := s.Compile(); err != nil {
			return nil, err
		}
	}
	return &StaticSource{subs: subs}, nil
}

// Load returns the static list.
func (s *StaticSource) Load(_ context.Context) ([]*Subscription, error) {
	return s.subs, nil
}

// FileSource reads subscriptions from a YAML file on every load, so edits
// take effect on the next cache refresh (or immediately when a watcher
// clears the cache).
type FileSource struct {
	path string
}

// NewFileSource creates a source reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load parses the file. The format is a top-level "subscriptions" list.
func (f *FileSource) Load(_ context.Context) ([]*Subscription, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading subscriptions file: %w", err)
	}

	var doc struct {
		Subscriptions []*Subscription `yaml:"subscriptions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing subscriptions file: %w", err)
	}

	for _, s := range doc.Subscriptions {
		if err := s.Compile(); err != nil {
			return nil, err
		}
	}
	return doc.Subscriptions, nil
}
