package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Outcomes a scenario can expect.
const (
	OutcomeFinalized = "finalized"
	OutcomeQuestions = "questions"
	OutcomeRejected  = "rejected"
)

// Scenario is one conformance case: a pixel-space observation, a scripted
// dialogue, and the outcome the pipeline must reach for them.
type Scenario struct {
	// Name uniquely identifies this scenario and keys its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Part names the record. Material and Process override the resolver
	// defaults when set.
	Part     string `yaml:"part"`
	Material string `yaml:"material"`
	Process  string `yaml:"process"`

	// Archetype pins the record archetype instead of inferring it from
	// the observation's part hint.
	Archetype string `yaml:"archetype"`

	// Intent switches on design-intent capture.
	Intent bool `yaml:"intent"`

	// Observation is an inline observation in the vision JSON shape.
	// ObservationFile loads the JSON from a file instead, resolved
	// relative to the scenario file. Exactly one of the two must be set.
	Observation     map[string]any `yaml:"observation"`
	ObservationFile string         `yaml:"observation_file"`

	// Params pre-answer questions by ID before the first resolution pass.
	Params map[string]any `yaml:"params"`

	// Answers are submitted in order once the first pass raises questions.
	Answers []AnswerStep `yaml:"answers"`

	Expect Expect `yaml:"expect"`
}

// AnswerStep is one scripted dialogue answer.
type AnswerStep struct {
	ID    string `yaml:"id"`
	Value any    `yaml:"value"`
}

// Expect declares the checks applied to a finished run. Outcome is
// mandatory; the remaining fields narrow it and each is only legal for the
// outcome it checks.
type Expect struct {
	Outcome string `yaml:"outcome"`

	// Questions must all be open after the final pass.
	Questions []string `yaml:"questions"`

	// Code is the required rejection code.
	Code string `yaml:"code"`

	// Finalized-record checks.
	HoleDiametersMM []float64   `yaml:"hole_diameters_mm"`
	Decisions       *int        `yaml:"decisions"`
	Layers          []string    `yaml:"layers"`
	Mesh            *MeshExpect `yaml:"mesh"`
}

// MeshExpect pins solid generation statistics.
type MeshExpect struct {
	Triangles  int  `yaml:"triangles"`
	Manifold   bool `yaml:"manifold"`
	Components int  `yaml:"components"`
}

// LoadScenario reads and validates a scenario from a YAML file. Unknown
// YAML keys are errors so a typo fails loudly instead of silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var scenario Scenario
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if scenario.ObservationFile != "" && !filepath.IsAbs(scenario.ObservationFile) {
		scenario.ObservationFile = filepath.Join(filepath.Dir(path), scenario.ObservationFile)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name
// so suite order is deterministic. Scenario names must be unique because
// they key the golden files.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	byName := make(map[string]string, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := byName[sc.Name]; dup {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", sc.Name, prev, p)
		}
		byName[sc.Name] = p
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// Validate checks structural completeness before a scenario runs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("scenario description is required")
	}
	if s.Part == "" {
		return fmt.Errorf("scenario part is required")
	}
	if len(s.Observation) == 0 && s.ObservationFile == "" {
		return fmt.Errorf("scenario needs an observation or an observation_file")
	}
	if len(s.Observation) > 0 && s.ObservationFile != "" {
		return fmt.Errorf("observation and observation_file are mutually exclusive")
	}
	for i, a := range s.Answers {
		if a.ID == "" {
			return fmt.Errorf("answer %d: id is required", i)
		}
	}
	return s.Expect.validate()
}

func (e *Expect) validate() error {
	switch e.Outcome {
	case OutcomeFinalized, OutcomeQuestions, OutcomeRejected:
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("unknown expect.outcome %q (want finalized, questions, or rejected)", e.Outcome)
	}
	if e.Outcome != OutcomeQuestions && len(e.Questions) > 0 {
		return fmt.Errorf("expect.questions only applies to the questions outcome")
	}
	if e.Outcome != OutcomeRejected && e.Code != "" {
		return fmt.Errorf("expect.code only applies to the rejected outcome")
	}
	if e.Outcome != OutcomeFinalized {
		if len(e.HoleDiametersMM) > 0 || e.Decisions != nil || len(e.Layers) > 0 || e.Mesh != nil {
			return fmt.Errorf("record checks only apply to the finalized outcome")
		}
	}
	if e.Decisions != nil && *e.Decisions < 0 {
		return fmt.Errorf("expect.decisions must not be negative")
	}
	if e.Mesh != nil {
		if e.Mesh.Triangles < 0 {
			return fmt.Errorf("expect.mesh.triangles must not be negative")
		}
		if e.Mesh.Components < 0 {
			return fmt.Errorf("expect.mesh.components must not be negative")
		}
	}
	return nil
}
