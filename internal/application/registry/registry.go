package registry

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aescanero/docforge/pkg/domain"
)

// document is the on-disk registry schema.
type document struct {
	Version    string                       `yaml:"version"`
	Processors []domain.ProcessorDescriptor `yaml:"processors"`
}

// Registry holds the validated set of processor descriptors. It is
// immutable after Load and safe for concurrent reads.
type Registry struct {
	version    string
	processors map[string]*domain.ProcessorDescriptor
	keys       []string
}

// Load parses and validates a registry document. Every problem in the
// batch is collected into a single *domain.ConfigError so a maintainer can
// fix the whole document in one pass.
func Load(raw []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &domain.ConfigError{
			Issues: []string{fmt.Sprintf("parse error: %v", err)},
		}
	}

	var issues []string

	if doc.Version == "" {
		issues = append(issues, "version is required")
	}
	if len(doc.Processors) == 0 {
		issues = append(issues, "at least one processor is required")
	}

	// First pass: collect keys so dependency checks can see the whole batch.
	seen := make(map[string]bool, len(doc.Processors))
	for i := range doc.Processors {
		p := &doc.Processors[i]
		if p.Key == "" {
			issues = append(issues, fmt.Sprintf("processor %d: key is required", i))
			continue
		}
		if seen[p.Key] {
			issues = append(issues, fmt.Sprintf("processor %q: duplicate key", p.Key))
			continue
		}
		seen[p.Key] = true
	}

	// Second pass: per-entry validation against the full batch.
	processors := make(map[string]*domain.ProcessorDescriptor, len(doc.Processors))
	for i := range doc.Processors {
		p := &doc.Processors[i]
		if p.Key == "" {
			continue
		}

		if p.EstimatedTokens < 0 {
			issues = append(issues, fmt.Sprintf(
				"processor %q: estimated_tokens must not be negative, got %d", p.Key, p.EstimatedTokens))
		}

		if p.Complexity == "" {
			p.Complexity = domain.ComplexityMedium
		} else if !domain.ValidComplexity(p.Complexity) {
			issues = append(issues, fmt.Sprintf(
				"processor %q: unknown complexity %q", p.Key, p.Complexity))
		}

		for _, dep := range p.Dependencies {
			if dep == p.Key {
				issues = append(issues, fmt.Sprintf("processor %q: depends on itself", p.Key))
				continue
			}
			if !seen[dep] {
				issues = append(issues, fmt.Sprintf(
					"processor %q: unknown dependency %q", p.Key, dep))
			}
		}

		processors[p.Key] = p
	}

	if len(issues) > 0 {
		return nil, &domain.ConfigError{Issues: issues}
	}

	keys := make([]string, 0, len(processors))
	for k := range processors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &Registry{
		version:    doc.Version,
		processors: processors,
		keys:       keys,
	}, nil
}

// Version returns the config/template version of the loaded document.
// Cache keys include it so editing the document invalidates prior entries.
func (r *Registry) Version() string {
	return r.version
}

// Get returns the descriptor for a key, or nil if absent.
func (r *Registry) Get(key string) *domain.ProcessorDescriptor {
	return r.processors[key]
}

// Keys returns all processor keys in ascending order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	return len(r.processors)
}
