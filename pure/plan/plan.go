// Package plan loads YAML allocation plans: an ordered list of passes, each
// a text constraint with per-pass caps, applied to one scenario.
package plan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/jwpure/jwpure/pure"
	"github.com/jwpure/jwpure/pure/query"
)

// PlanSpec is the top-level plan configuration.
// Loaded from YAML via Load(path).
type PlanSpec struct {
	Version    string     `yaml:"version"`
	Slots      string     `yaml:"slots,omitempty"`       // slot catalog; relative to the plan file
	TraceVisit string     `yaml:"trace_visit,omitempty"` // visit to trace through every pass
	Passes     []PassSpec `yaml:"passes"`
}

// PassSpec defines one allocation pass.
type PassSpec struct {
	Name       string `yaml:"name,omitempty"`
	Constraint string `yaml:"constraint"`
	MaxSlot    *Cap   `yaml:"max_slot,omitempty"`   // default pure.DefaultMaxSlot
	MaxConfig  *Cap   `yaml:"max_config,omitempty"` // default pure.DefaultMaxConfig
	Repeat     int    `yaml:"repeat,omitempty"`     // 0 = once
}

// Cap is a per-pass limit written as a YAML integer. Floats such as 2.5 and
// quoted numbers are rejected.
type Cap int

// UnmarshalYAML rejects any scalar not tagged !!int.
func (c *Cap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!int" {
		return fmt.Errorf("line %d: cap %q must be an integer", node.Line, node.Value)
	}
	var v int
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("line %d: cap %q: %w", node.Line, node.Value, err)
	}
	*c = Cap(v)
	return nil
}

// Pass is a compiled pass ready to run.
type Pass struct {
	Name       string
	Constraint pure.Expr
	MaxSlot    int
	MaxConfig  int
}

var validVersions = map[string]bool{
	"": true, "1": true,
}

// Load reads and parses a YAML plan file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
// A relative slots path is resolved against the plan file's directory.
func Load(path string) (*PlanSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	spec, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if spec.Slots != "" && !filepath.IsAbs(spec.Slots) {
		spec.Slots = filepath.Join(filepath.Dir(path), spec.Slots)
	}
	return spec, nil
}

// Decode parses a YAML plan from r.
func Decode(r io.Reader) (*PlanSpec, error) {
	var spec PlanSpec
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if spec.Version == "" {
		logrus.Debugf("plan has no version; assuming \"1\"")
		spec.Version = "1"
	}
	return &spec, nil
}

// Validate checks that all fields in the plan are valid.
func (s *PlanSpec) Validate() error {
	_, err := s.Compile()
	return err
}

// Compile validates the plan and expands it into passes, repeats unrolled.
func (s *PlanSpec) Compile() ([]Pass, error) {
	if !validVersions[s.Version] {
		return nil, fmt.Errorf("unknown plan version %q; valid: 1", s.Version)
	}
	if len(s.Passes) == 0 {
		return nil, fmt.Errorf("at least one pass required")
	}
	var passes []Pass
	for i, ps := range s.Passes {
		prefix := fmt.Sprintf("pass[%d]", i)
		if ps.Name != "" {
			prefix = fmt.Sprintf("pass[%d] %q", i, ps.Name)
		}
		if ps.Repeat < 0 {
			return nil, fmt.Errorf("%s: repeat must be non-negative, got %d", prefix, ps.Repeat)
		}
		expr, err := query.Parse(ps.Constraint)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		pass := Pass{
			Name:       ps.Name,
			Constraint: expr,
			MaxSlot:    intOr(ps.MaxSlot, pure.DefaultMaxSlot),
			MaxConfig:  intOr(ps.MaxConfig, pure.DefaultMaxConfig),
		}
		if pass.MaxSlot < 1 || pass.MaxConfig < 1 {
			logrus.Warnf("%s: max_slot=%d max_config=%d; this pass will allocate nothing",
				prefix, pass.MaxSlot, pass.MaxConfig)
		}
		for range max(ps.Repeat, 1) {
			passes = append(passes, pass)
		}
	}
	return passes, nil
}

// Run applies passes to sc in order. after, if non-nil, is called once per
// pass with its result.
func Run(sc *pure.Scenario, passes []Pass, after func(Pass, pure.PassResult)) ([]pure.PassResult, error) {
	results := make([]pure.PassResult, 0, len(passes))
	for _, p := range passes {
		result, err := sc.AllocateSlots(p.Constraint, p.MaxSlot, p.MaxConfig)
		if err != nil {
			return results, fmt.Errorf("pass %q: %w", p.Name, err)
		}
		results = append(results, result)
		if after != nil {
			after(p, result)
		}
	}
	return results, nil
}

func intOr(v *Cap, def int) int {
	if v == nil {
		return def
	}
	return int(*v)
}
