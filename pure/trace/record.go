// Package trace provides per-visit allocation trace recording.
// It has no dependencies on pure/ and stores plain data types only.
package trace

// SlotRecord captures a slot of the traced visit that survived the slot stage.
type SlotRecord struct {
	SlotID   string
	ConfigID string
}

// ConfigRecord captures a configuration aggregate of the traced visit.
type ConfigRecord struct {
	ConfigID  string
	NSlot     int
	ConfigDur float64
	Kept      bool // survived the configuration stage
}

// VisitRecord captures the traced visit's aggregate after the configuration stage.
type VisitRecord struct {
	VisitID string
	NConfig int
}

// SelectionRecord captures a candidate slot and the sequence numbers it was
// given. Allocated is false when a maxslot or maxconfig cap truncated it.
type SelectionRecord struct {
	SlotID     string
	ConfigID   string
	PureVisit  int
	PureConfig int
	PureSlot   int
	Allocated  bool
}

// PassRecord captures every stage of one allocation pass for the traced visit.
type PassRecord struct {
	Pass       int
	Constraint string
	Slots      []SlotRecord
	Configs    []ConfigRecord
	Visit      *VisitRecord // nil when no configuration of the visit survived
	Selections []SelectionRecord
}
