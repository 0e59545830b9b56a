package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jwpure/jwpure/pure"
	"github.com/jwpure/jwpure/pure/export"
	"github.com/jwpure/jwpure/pure/plan"
	"github.com/jwpure/jwpure/pure/query"
)

// runOptions collects the inputs of the run command.
type runOptions struct {
	SlotsPath     string
	PlanPath      string
	Constraint    string
	MaxSlot       int
	MaxConfig     int
	Repeat        int
	OutPath       string
	SaveSlotsPath string
	SQLitePath    string
	TraceVisit    string
}

// resolvePasses returns the passes to run plus the plan's slots and trace
// settings, which flags override.
func (o runOptions) resolvePasses() ([]plan.Pass, string, string, error) {
	if o.PlanPath != "" {
		if o.Constraint != "" {
			return nil, "", "", errors.New("--plan and --constraint are mutually exclusive")
		}
		spec, err := plan.Load(o.PlanPath)
		if err != nil {
			return nil, "", "", err
		}
		passes, err := spec.Compile()
		if err != nil {
			return nil, "", "", fmt.Errorf("%s: %w", o.PlanPath, err)
		}
		return passes, firstNonEmpty(o.SlotsPath, spec.Slots), firstNonEmpty(o.TraceVisit, spec.TraceVisit), nil
	}

	expr, err := query.Parse(o.Constraint)
	if err != nil {
		return nil, "", "", err
	}
	if o.Repeat < 1 {
		return nil, "", "", fmt.Errorf("--repeat must be at least 1, got %d", o.Repeat)
	}
	passes := make([]plan.Pass, o.Repeat)
	for i := range passes {
		passes[i] = plan.Pass{Name: "inline", Constraint: expr, MaxSlot: o.MaxSlot, MaxConfig: o.MaxConfig}
	}
	return passes, o.SlotsPath, o.TraceVisit, nil
}

// runScenario loads the catalog, runs every pass printing the summary after
// each one, and writes the requested outputs.
func runScenario(ctx context.Context, o runOptions, out io.Writer) error {
	passes, slots, traceID, err := o.resolvePasses()
	if err != nil {
		return err
	}
	if slots == "" {
		return errors.New("no slot catalog: pass --slots or set slots in the plan")
	}

	sc, err := pure.LoadScenario(slots)
	if err != nil {
		return err
	}
	sc.Out = out
	sc.SetTrace(traceID)
	logrus.Infof("Starting allocation: %d slots, %d passes", sc.Pool().Len(), len(passes))

	_, err = plan.Run(sc, passes, func(p plan.Pass, r pure.PassResult) {
		_, _ = fmt.Fprintf(out, "\npass %d (%s): %d slots, %d configs, %d visits, %.3f hours\n",
			r.Pass, p.Name, r.NSlot, r.NConfig, r.NVisit, r.Hours)
		sc.Summarize()
	})
	if err != nil {
		return err
	}
	if t := sc.Trace(); t != nil {
		if err := printTrace(out, t); err != nil {
			return err
		}
	}

	if o.OutPath != "" {
		if err := sc.Save(o.OutPath); err != nil {
			return err
		}
	}
	if o.SaveSlotsPath != "" {
		if err := sc.SaveSlots(o.SaveSlotsPath); err != nil {
			return err
		}
	}
	if o.SQLitePath != "" {
		if err := export.Export(ctx, o.SQLitePath, sc); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "wrote %s\n", o.SQLitePath)
	}
	return nil
}

// summarizeCatalog prints, and optionally saves, the summary of a catalog.
func summarizeCatalog(slots, outFile string, out io.Writer) error {
	sc, err := pure.LoadScenario(slots)
	if err != nil {
		return err
	}
	sc.Out = out
	sc.Summarize()
	if outFile != "" {
		return sc.Save(outFile)
	}
	return nil
}

// printFields lists constraint parameters, one qualified name per line.
// pure_subset is left out: it is an internal bookkeeping field.
func printFields(out io.Writer) {
	for _, f := range pure.Fields() {
		if f.Name == pure.ColPureSubset {
			continue
		}
		_, _ = fmt.Fprintf(out, "%-16s %s\n", f.Qualified(), f.Kind())
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
