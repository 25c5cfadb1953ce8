package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is a rules pack loaded from --rules. YAML and JSON are accepted.
type Rules struct {
	Focus    []string        `json:"focus,omitempty" yaml:"focus,omitempty"`
	Required []RequiredCheck `json:"required,omitempty" yaml:"required,omitempty"`
	Ignore   []string        `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Rubric   []RubricItem    `json:"rubric,omitempty" yaml:"rubric,omitempty"`
}

// RequiredCheck is a policy check every file review must evaluate.
type RequiredCheck struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// RubricItem is one weighted criterion of the quality score.
type RubricItem struct {
	Name   string `json:"name" yaml:"name"`
	Points int    `json:"points" yaml:"points"`
	Text   string `json:"text" yaml:"text"`
}

// DefaultRubric scores a project out of 100.
var DefaultRubric = []RubricItem{
	{Name: "Architecture", Points: 30, Text: "clear structure, sensible module boundaries, easy to extend and maintain"},
	{Name: "Data handling", Points: 30, Text: "loading, processing and storage are efficient and follow good practice"},
	{Name: "Code quality", Points: 20, Text: "idiomatic style for the language, no redundancy, clear naming"},
	{Name: "Documentation", Points: 10, Text: "enough docs and comments to follow the logic"},
	{Name: "Security", Points: 10, Text: "input validation, error handling and other security concerns are addressed"},
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error if
// path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rules Rules
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &rules)
	default:
		err = yaml.Unmarshal(data, &rules)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := rules.validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return &rules, nil
}

func (r *Rules) validate() error {
	for i, req := range r.Required {
		if strings.TrimSpace(req.Text) == "" {
			return fmt.Errorf("required check %d has no text", i)
		}
	}
	for _, item := range r.Rubric {
		if item.Points <= 0 {
			return fmt.Errorf("rubric item %q must have positive points", item.Name)
		}
	}
	return nil
}

// rubric returns the pack's rubric or the default one.
func (r *Rules) rubric() []RubricItem {
	if r == nil || len(r.Rubric) == 0 {
		return DefaultRubric
	}
	return r.Rubric
}

// promptSection renders the focus, required and ignore instructions shared by
// the analyze and reduce prompts.
func (r *Rules) promptSection() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if len(r.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize findings in these areas.\n", strings.Join(r.Focus, ", "))
	}
	if len(r.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range r.Required {
			if req.ID != "" {
				fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
			} else {
				fmt.Fprintf(&b, "- %s\n", req.Text)
			}
		}
	}
	if len(r.Ignore) > 0 {
		fmt.Fprintf(&b, "\nDo not report on: %s.\n", strings.Join(r.Ignore, ", "))
	}
	return b.String()
}
