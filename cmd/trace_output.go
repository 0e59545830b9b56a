package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jwpure/jwpure/pure/trace"
)

// printTrace writes every stage of every pass recorded for the traced visit,
// followed by totals.
func printTrace(out io.Writer, t *trace.AllocationTrace) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range t.Passes {
		_, _ = fmt.Fprintf(tw, "\nSubset %d, visit %s: %s\n", p.Pass, t.Config.VisitID, p.Constraint)

		_, _ = fmt.Fprintln(tw, "slot table\tslot_id\tconfig_id\t")
		for _, s := range p.Slots {
			_, _ = fmt.Fprintf(tw, "\t%s\t%s\t\n", s.SlotID, s.ConfigID)
		}

		_, _ = fmt.Fprintln(tw, "config table\tconfig_id\tnslot\tconfigdur\tkept\t")
		for _, c := range p.Configs {
			_, _ = fmt.Fprintf(tw, "\t%s\t%d\t%.1f\t%t\t\n", c.ConfigID, c.NSlot, c.ConfigDur, c.Kept)
		}

		if p.Visit != nil {
			_, _ = fmt.Fprintf(tw, "visit table\tnconfig=%d\t\n", p.Visit.NConfig)
		} else {
			_, _ = fmt.Fprintln(tw, "visit table\t(dropped)\t")
		}

		_, _ = fmt.Fprintln(tw, "sequence numbers\tslot_id\tpure_visit\tpure_config\tpure_slot\tallocated\t")
		for _, s := range p.Selections {
			_, _ = fmt.Fprintf(tw, "\t%s\t%d\t%d\t%d\t%t\t\n", s.SlotID, s.PureVisit, s.PureConfig, s.PureSlot, s.Allocated)
		}
	}
	summary := trace.Summarize(t)
	_, _ = fmt.Fprintf(tw, "\ntrace: %d passes, %d candidates, %d allocated, %d truncated, %d configs dropped\n",
		summary.Passes, summary.Candidates, summary.Allocated, summary.Truncated, summary.ConfigsDropped)
	return tw.Flush()
}
