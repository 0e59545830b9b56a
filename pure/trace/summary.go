package trace

// TraceSummary aggregates statistics from an AllocationTrace.
type TraceSummary struct {
	Passes          int
	SlotStageRows   int
	ConfigsKept     int
	ConfigsDropped  int
	Candidates      int
	Allocated       int
	Truncated       int
	AllocatedByPass map[int]int // pass → slots allocated from the traced visit
}

// Summarize computes aggregate statistics from an AllocationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *AllocationTrace) *TraceSummary {
	summary := &TraceSummary{
		AllocatedByPass: make(map[int]int),
	}
	if t == nil {
		return summary
	}

	summary.Passes = len(t.Passes)
	for _, p := range t.Passes {
		summary.SlotStageRows += len(p.Slots)
		for _, c := range p.Configs {
			if c.Kept {
				summary.ConfigsKept++
			} else {
				summary.ConfigsDropped++
			}
		}
		summary.Candidates += len(p.Selections)
		for _, s := range p.Selections {
			if s.Allocated {
				summary.Allocated++
				summary.AllocatedByPass[p.Pass]++
			} else {
				summary.Truncated++
			}
		}
	}
	return summary
}
