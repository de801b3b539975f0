package reply

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v2"

	"github.com/voicedesk/voicedesk/pkg/core/convo"
)

// Rule matches an utterance by keyword and yields a canned answer.
type Rule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// BusinessRules is the per-business reply configuration.
type BusinessRules struct {
	Greeting string `yaml:"greeting"`
	Fallback string `yaml:"fallback"`
	Rules    []Rule `yaml:"rules"`
}

type rulesFile struct {
	Default    BusinessRules            `yaml:"default"`
	Businesses map[string]BusinessRules `yaml:"businesses"`
}

// RuleEngine is a keyword-driven Generator. It answers from a YAML rule set,
// first keyword hit wins, falling back to the business's fallback line when
// nothing matches.
type RuleEngine struct {
	def        BusinessRules
	businesses map[string]BusinessRules
}

// LoadRules reads a rule file and builds the engine.
func LoadRules(path string) (*RuleEngine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reply: read rules: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules builds the engine from YAML bytes.
func ParseRules(raw []byte) (*RuleEngine, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("reply: parse rules: %w", err)
	}
	if f.Default.Fallback == "" {
		f.Default.Fallback = "I'm sorry, I didn't catch that. Could you say it again?"
	}
	return &RuleEngine{def: f.Default, businesses: f.Businesses}, nil
}

func (e *RuleEngine) rulesFor(businessID string) BusinessRules {
	if b, ok := e.businesses[businessID]; ok {
		if b.Fallback == "" {
			b.Fallback = e.def.Fallback
		}
		return b
	}
	return e.def
}

// Generate implements Generator.
func (e *RuleEngine) Generate(_ context.Context, utterance, businessID string, _ []convo.Turn) (Reply, error) {
	b := e.rulesFor(businessID)
	lower := strings.ToLower(utterance)
	for _, r := range b.Rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return Reply{Text: r.Answer, Label: r.Label}, nil
			}
		}
	}
	return Reply{Text: b.Fallback, Label: "fallback"}, nil
}

// Greeting returns the line spoken when a call starts, if configured.
func (e *RuleEngine) Greeting(businessID string) string {
	return e.rulesFor(businessID).Greeting
}
