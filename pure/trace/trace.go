package trace

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	VisitID string // visit to follow; empty disables tracing
}

// Enabled reports whether a visit is being traced.
func (c TraceConfig) Enabled() bool {
	return c.VisitID != ""
}

// AllocationTrace collects pass records for one visit.
type AllocationTrace struct {
	Config TraceConfig
	Passes []PassRecord
}

// NewAllocationTrace creates an AllocationTrace ready for recording.
func NewAllocationTrace(config TraceConfig) *AllocationTrace {
	return &AllocationTrace{
		Config: config,
		Passes: make([]PassRecord, 0),
	}
}

// RecordPass appends a pass record.
func (t *AllocationTrace) RecordPass(record PassRecord) {
	t.Passes = append(t.Passes, record)
}
