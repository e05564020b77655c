package domain

import (
	"strings"
)

// SectionPriority tags how disposable a context section is under budget
// pressure. Required sections survive every reduction strategy.
type SectionPriority string

const (
	PriorityRequired SectionPriority = "required"
	PriorityNormal   SectionPriority = "normal"
	PriorityLow      SectionPriority = "low"
)

// Section is one titled block of project context. Categories lists the
// processor categories the section is relevant to; empty means all.
type Section struct {
	Title      string          `yaml:"title" json:"title"`
	Body       string          `yaml:"body" json:"body"`
	Priority   SectionPriority `yaml:"priority" json:"priority"`
	Categories []string        `yaml:"categories" json:"categories,omitempty"`
}

// RelevantTo reports whether the section applies to the given category.
func (s *Section) RelevantTo(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ProjectContext is the shared input every processor draws from. Section
// order is meaningful and preserved by every transformation.
type ProjectContext struct {
	Project  string    `yaml:"project" json:"project"`
	Sections []Section `yaml:"sections" json:"sections"`
}

// SliceFor returns a copy of the context restricted to sections relevant
// to the given processor category. Order is preserved.
func (c *ProjectContext) SliceFor(category string) *ProjectContext {
	out := &ProjectContext{Project: c.Project}
	for _, s := range c.Sections {
		if s.RelevantTo(category) {
			out.Sections = append(out.Sections, s)
		}
	}
	return out
}

// Canonical produces a deterministic serialization of the context. Both
// token estimation and cache-key derivation hash this form, so any change
// to it invalidates prior cache entries.
func (c *ProjectContext) Canonical() string {
	var b strings.Builder
	b.WriteString("project: ")
	b.WriteString(c.Project)
	b.WriteByte('\n')
	for _, s := range c.Sections {
		b.WriteString("## ")
		b.WriteString(s.Title)
		b.WriteString(" [")
		b.WriteString(string(s.Priority))
		b.WriteString("]\n")
		b.WriteString(s.Body)
		b.WriteByte('\n')
	}
	return b.String()
}

// Clone returns a deep copy safe to mutate during fallback reduction.
func (c *ProjectContext) Clone() *ProjectContext {
	out := &ProjectContext{
		Project:  c.Project,
		Sections: make([]Section, len(c.Sections)),
	}
	copy(out.Sections, c.Sections)
	for i := range out.Sections {
		if cats := c.Sections[i].Categories; cats != nil {
			out.Sections[i].Categories = make([]string, len(cats))
			copy(out.Sections[i].Categories, cats)
		}
	}
	return out
}
