// Package taxonomy holds the per-module topic lists an interview probes.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/viva/internal/coverage"
)

// ErrUnknownModule is returned when a module id is not in the registry.
var ErrUnknownModule = errors.New("taxonomy: unknown module")

// TopicSpec is the static definition of a topic.
type TopicSpec struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Required bool     `yaml:"required"`
}

// Module is one procedure or subject area with its topics.
type Module struct {
	ID      string      `yaml:"id"`
	Title   string      `yaml:"title"`
	Context string      `yaml:"context"`
	Topics  []TopicSpec `yaml:"topics"`
}

type file struct {
	Modules []Module `yaml:"modules"`
}

// Registry indexes modules by id. It is read-only after construction.
type Registry struct {
	modules []Module
	byID    map[string]*Module
}

// New builds a registry from modules. It does not validate; call Validate.
func New(modules []Module) *Registry {
	r := &Registry{
		modules: modules,
		byID:    make(map[string]*Module, len(modules)),
	}
	for i := range r.modules {
		r.byID[r.modules[i].ID] = &r.modules[i]
	}
	return r
}

// LoadFile reads a YAML taxonomy file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML taxonomy document.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	return New(f.Modules), nil
}

// Get returns the module or ErrUnknownModule.
func (r *Registry) Get(moduleID string) (Module, error) {
	m, ok := r.byID[moduleID]
	if !ok {
		return Module{}, fmt.Errorf("%w: %q", ErrUnknownModule, moduleID)
	}
	return *m, nil
}

// Modules returns all modules sorted by id.
func (r *Registry) Modules() []Module {
	out := append([]Module(nil), r.modules...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Instantiate creates fresh coverage topics for a module, all at score 0.
func (r *Registry) Instantiate(moduleID string) ([]coverage.Topic, error) {
	m, err := r.Get(moduleID)
	if err != nil {
		return nil, err
	}
	topics := make([]coverage.Topic, 0, len(m.Topics))
	for _, ts := range m.Topics {
		topics = append(topics, coverage.Topic{
			ID:         ts.ID,
			Name:       ts.Name,
			Keywords:   append([]string(nil), ts.Keywords...),
			IsRequired: ts.Required,
			Status:     coverage.NotDiscussed,
		})
	}
	return topics, nil
}
