// Package prompt holds the instruction templates and assembles the system
// instruction sent with every completion request.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"therapy-companion/internal/domain"
)

// Store maps every mode and submode to its block. It is read-only after
// construction and safe for concurrent use.
type Store struct {
	outputRules  string
	base         string
	analyticBase string
	modes        map[domain.Mode]string
	submodes     map[domain.Submode]string
}

// Overrides is the shape of the optional YAML overrides file.
type Overrides struct {
	OutputRules  string            `yaml:"output_rules"`
	Base         string            `yaml:"base"`
	AnalyticBase string            `yaml:"analytic_base"`
	Modes        map[string]string `yaml:"modes"`
	Submodes     map[string]string `yaml:"submodes"`
}

// NewStore returns a Store with the built-in blocks.
func NewStore() *Store {
	return &Store{
		outputRules:  outputRules,
		base:         basePreamble,
		analyticBase: analyticBase,
		modes: map[domain.Mode]string{
			domain.ModeSupport:   supportBlock,
			domain.ModeCBT:       cbtBlock,
			domain.ModeACT:       actBlock,
			domain.ModeGrounding: groundingBlock,
			domain.ModeEducation: educationBlock,
			domain.ModeAnalytic:  analyticBase,
		},
		submodes: map[domain.Submode]string{
			domain.SubmodeKeyConcepts:           keyConceptsBlock,
			domain.SubmodeAssessmentFormulation: assessmentBlock,
			domain.SubmodeGettingStarted:        gettingStartedBlock,
			domain.SubmodeInterventions:         interventionsBlock,
			domain.SubmodeGoalsAction:           goalsActionBlock,
			domain.SubmodeResistance:            resistanceBlock,
			domain.SubmodeDreams:                dreamsBlock,
			domain.SubmodeCountertransference:   countertransferenceBlock,
			domain.SubmodeTermination:           terminationBlock,
			domain.SubmodeEvidence:              evidenceBlock,
		},
	}
}

// LoadStore returns the built-in Store with the overrides file at path
// applied. An empty path yields the built-in Store.
func LoadStore(path string) (*Store, error) {
	s := NewStore()
	path = strings.TrimSpace(path)
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read overrides: %w", err)
	}
	ov, err := ParseOverrides(raw)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ov); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseOverrides decodes an overrides document, rejecting unknown fields.
func ParseOverrides(raw []byte) (Overrides, error) {
	var ov Overrides
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil {
		return Overrides{}, fmt.Errorf("prompt: decode overrides: %w", err)
	}
	return ov, nil
}

func (s *Store) apply(ov Overrides) error {
	set := func(dst *string, v, name string) error {
		if v == "" {
			return nil
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("prompt: override %q is blank", name)
		}
		*dst = v
		return nil
	}
	if err := set(&s.outputRules, ov.OutputRules, "output_rules"); err != nil {
		return err
	}
	if err := set(&s.base, ov.Base, "base"); err != nil {
		return err
	}
	if err := set(&s.analyticBase, ov.AnalyticBase, "analytic_base"); err != nil {
		return err
	}
	s.modes[domain.ModeAnalytic] = s.analyticBase

	for k, v := range ov.Modes {
		m := domain.Mode(k)
		if _, ok := s.modes[m]; !ok {
			return fmt.Errorf("prompt: unknown mode %q in overrides", k)
		}
		if m == domain.ModeAnalytic {
			return errors.New("prompt: override the analytic block through analytic_base")
		}
		block := s.modes[m]
		if err := set(&block, v, "modes."+k); err != nil {
			return err
		}
		s.modes[m] = block
	}
	for k, v := range ov.Submodes {
		sm, ok := domain.ParseSubmode(k)
		if !ok {
			return fmt.Errorf("prompt: unknown submode %q in overrides", k)
		}
		block := s.submodes[sm]
		if err := set(&block, v, "submodes."+k); err != nil {
			return err
		}
		s.submodes[sm] = block
	}
	return nil
}

// OutputRules returns the reply-format constraints.
func (s *Store) OutputRules() string { return s.outputRules }

// Base returns the persona and safety-reasoning preamble.
func (s *Store) Base() string { return s.base }

// AnalyticBase returns the block shared by all analytic submodes.
func (s *Store) AnalyticBase() string { return s.analyticBase }

// ModeBlock returns the block for m, or the support block for unknown modes.
func (s *Store) ModeBlock(m domain.Mode) string {
	if b, ok := s.modes[m]; ok {
		return b
	}
	return s.modes[domain.ModeSupport]
}

// SubmodeBlock returns the block for sm, or the key_concepts block.
func (s *Store) SubmodeBlock(sm domain.Submode) string {
	if b, ok := s.submodes[sm]; ok {
		return b
	}
	return s.submodes[domain.SubmodeKeyConcepts]
}

// Block looks label up as a mode, then as a submode. Anything else resolves to
// the support block; lookups never fail.
func (s *Store) Block(label string) string {
	if b, ok := s.modes[domain.Mode(label)]; ok {
		return b
	}
	if b, ok := s.submodes[domain.Submode(label)]; ok {
		return b
	}
	return s.modes[domain.ModeSupport]
}
