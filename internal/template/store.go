// Package template provides the file-backed template store. Templates
// are JSON documents under a single directory; the standard fight-video
// template is seeded on first start.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/validate"
)

var (
	ErrNotFound  = errors.New("template not found")
	ErrExists    = errors.New("template already exists")
	ErrIsDefault = errors.New("cannot delete default templates")
)

// Store reads and writes templates under one directory. All operations
// are safe for concurrent callers.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the directory if needed and seeds the default
// template.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir: %w", err)
	}
	s := &Store{dir: dir}
	if err := s.ensureDefault(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureDefault() error {
	def := DefaultTemplate()
	if _, err := os.Stat(s.path(def.TemplateID)); err == nil {
		return nil
	}
	if err := s.write(def); err != nil {
		return fmt.Errorf("seed default template: %w", err)
	}
	log.Printf("Created default template %s", def.TemplateID)
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) write(t *model.Template) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(t.TemplateID), data, 0o644)
}

func (s *Store) read(id string) (*model.Template, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var t model.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	t.Normalize()
	return &t, nil
}

// Create validates and persists a new template. The template id defaults
// to the template name.
func (s *Store) Create(t *model.Template) error {
	if err := validate.TemplateStructure(t); err != nil {
		return err
	}
	if t.TemplateID == "" {
		t.TemplateID = t.TemplateName
	}
	if err := validate.TemplateName(t.TemplateID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(t.TemplateID)); err == nil {
		return ErrExists
	}
	now := time.Now().UTC().Format(time.RFC3339)
	t.CreatedAt = now
	t.UpdatedAt = now
	t.IsDefault = false
	t.Normalize()
	return s.write(t)
}

// Get returns a template by id. The name is sanitized before it touches
// the filesystem.
func (s *Store) Get(id string) (*model.Template, error) {
	if err := validate.TemplateName(id); err != nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// List returns summaries of every stored template, defaults first.
func (s *Store) List() []model.TemplateSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []model.TemplateSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		t, err := s.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			log.Printf("Skipping unreadable template %s: %v", e.Name(), err)
			continue
		}
		out = append(out, model.TemplateSummary{
			TemplateID:           t.TemplateID,
			TemplateName:         t.TemplateName,
			Description:          t.Description,
			ScenesCount:          len(t.Scenes),
			TotalDurationSeconds: t.TotalDuration(),
			CreatedAt:            t.CreatedAt,
			IsDefault:            t.IsDefault,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].TemplateName < out[j].TemplateName
	})
	return out
}

// Delete removes a template. Default templates cannot be deleted.
func (s *Store) Delete(id string) error {
	if err := validate.TemplateName(id); err != nil {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read(id)
	if err != nil {
		return err
	}
	if t.IsDefault {
		return ErrIsDefault
	}
	return os.Remove(s.path(id))
}
