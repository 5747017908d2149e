package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/pipeline"
)

// Scenario is a declarative test scenario loaded from YAML.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the initial state the first step receives.
	// Defaults to an empty state.
	Seed map[string]any `yaml:"seed,omitempty"`

	// Steps lists the step declarations, in execution order.
	Steps []StepDecl `yaml:"steps"`

	// Policy declares the failure-handling configuration for the run.
	Policy PolicyDecl `yaml:"policy,omitempty"`

	// RunToken is an optional fixed run token for deterministic tests.
	// If empty, the runner generates one.
	RunToken string `yaml:"run_token,omitempty"`
}

// StepDecl declares one step: its keyword, title, and the registered op
// (plus args) that becomes the step's function.
type StepDecl struct {
	// Keyword is one of: given, when, then, and, but.
	// And/but inherit the phase of the preceding step.
	Keyword string `yaml:"keyword"`

	// Title is the human-readable step title. Optional; a blank title
	// falls back to the phase literal at execution time.
	Title string `yaml:"title,omitempty"`

	// Op names a registered op.
	Op string `yaml:"op"`

	// Args contains the op's arguments.
	Args map[string]any `yaml:"args,omitempty"`
}

// PolicyDecl is the YAML shape of a pipeline.Policy.
// Both booleans are explicit in the file format; omitted fields decode to
// false, which is itself a deliberate "halt, don't drain" configuration.
type PolicyDecl struct {
	ContinueOnError        bool   `yaml:"continue_on_error"`
	HaltOnFailedAssertion  bool   `yaml:"halt_on_failed_assertion"`
	StepTimeout            string `yaml:"step_timeout,omitempty"`
	MarkRemainingAsSkipped bool   `yaml:"mark_remaining_as_skipped"`
}

// Keywords accepted in step declarations.
var validKeywords = map[string]bool{
	"given": true,
	"when":  true,
	"then":  true,
	"and":   true,
	"but":   true,
}

// Load reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes scenario YAML with strict field validation.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos like "step:" vs "steps:")
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &sc, nil
}

// validate checks that required fields are present and valid.
func validate(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}

	if sc.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(sc.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range sc.Steps {
		if !validKeywords[step.Keyword] {
			return fmt.Errorf("steps[%d]: invalid keyword %q (want given|when|then|and|but)", i, step.Keyword)
		}
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
	}

	// A connective cannot open the scenario: there is no preceding step
	// whose phase it could inherit.
	first := sc.Steps[0].Keyword
	if first == "and" || first == "but" {
		return fmt.Errorf("steps[0]: scenario cannot open with %q (no preceding step to inherit a phase from)", first)
	}

	if sc.Policy.StepTimeout != "" {
		if _, err := time.ParseDuration(sc.Policy.StepTimeout); err != nil {
			return fmt.Errorf("policy.step_timeout: %w", err)
		}
	}

	return nil
}

// BuildPolicy converts the declared policy to the engine's Policy.
func (sc *Scenario) BuildPolicy() (pipeline.Policy, error) {
	policy := pipeline.Policy{
		ContinueOnError:        sc.Policy.ContinueOnError,
		HaltOnFailedAssertion:  sc.Policy.HaltOnFailedAssertion,
		MarkRemainingAsSkipped: sc.Policy.MarkRemainingAsSkipped,
	}

	if sc.Policy.StepTimeout != "" {
		d, err := time.ParseDuration(sc.Policy.StepTimeout)
		if err != nil {
			return pipeline.Policy{}, fmt.Errorf("policy.step_timeout: %w", err)
		}
		policy.StepTimeout = d
	}

	return policy, nil
}

// BuildQueue binds every step declaration to its op and enqueues the
// steps through a chain, so and/but inherit the preceding phase.
func (sc *Scenario) BuildQueue(registry *Registry) (*pipeline.Queue[State], error) {
	chain := NewChain[State]()

	for i, decl := range sc.Steps {
		fn, err := registry.Build(decl.Op, decl.Args)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s %q): %w", i, decl.Keyword, decl.Title, err)
		}

		switch decl.Keyword {
		case "given":
			chain.Given(decl.Title, fn)
		case "when":
			chain.When(decl.Title, fn)
		case "then":
			chain.Then(decl.Title, fn)
		case "and":
			chain.And(decl.Title, fn)
		case "but":
			chain.But(decl.Title, fn)
		default:
			return nil, fmt.Errorf("steps[%d]: invalid keyword %q", i, decl.Keyword)
		}
	}

	return chain.Queue(), nil
}

// SeedState returns the scenario's initial state.
func (sc *Scenario) SeedState() State {
	if sc.Seed == nil {
		return State{}
	}
	return State(sc.Seed).Clone()
}
