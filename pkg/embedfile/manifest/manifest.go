// Package manifest declares registry contents in YAML.
//
//	files:
//	  license:
//	    name: LICENSE.txt
//	    namespace: app.assets
//	    owner: app
//	    file_name: LICENSE
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/tendant/simple-embed/pkg/embedfile"
	"gopkg.in/yaml.v3"
)

// Entry describes one registration
type Entry struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	Owner     string `yaml:"owner"`
	FileName  string `yaml:"file_name,omitempty"`
}

// Manifest maps registry ids to entries
type Manifest struct {
	Files map[string]Entry `yaml:"files"`
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Manifest{Files: map[string]Entry{}}, nil
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Files == nil {
		m.Files = map[string]Entry{}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every entry has an id, a name and an owner
func (m *Manifest) Validate() error {
	for _, id := range m.IDs() {
		entry := m.Files[id]
		switch {
		case id == "":
			return fmt.Errorf("%w: manifest entry with empty id", embedfile.ErrInvalidArgument)
		case entry.Name == "":
			return fmt.Errorf("%w: manifest entry %q has no name", embedfile.ErrInvalidArgument, id)
		case entry.Owner == "":
			return fmt.Errorf("%w: manifest entry %q has no owner", embedfile.ErrInvalidArgument, id)
		}
	}
	return nil
}

// IDs returns the manifest ids in sorted order
func (m *Manifest) IDs() []string {
	ids := make([]string, 0, len(m.Files))
	for id := range m.Files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// File builds the embedded file described by entry
func (e Entry) File(provider embedfile.ContentProvider, opts ...embedfile.Option) *embedfile.File {
	ref := embedfile.Reference{Owner: embedfile.Owner(e.Owner), Namespace: e.Namespace}
	if e.FileName != "" {
		opts = append(opts[:len(opts):len(opts)], embedfile.WithFileName(e.FileName))
	}
	return embedfile.New(e.Name, ref, provider, opts...)
}

// Register sets every entry on reg in id order. It stops at the first hook error.
func (m *Manifest) Register(ctx context.Context, reg *embedfile.Registry, provider embedfile.ContentProvider, opts ...embedfile.Option) error {
	for _, id := range m.IDs() {
		entry := m.Files[id]
		if _, err := reg.Set(ctx, id, entry.File(provider, opts...)); err != nil {
			return fmt.Errorf("failed to register %q: %w", id, err)
		}
	}
	return nil
}
