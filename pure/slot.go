package pure

import "math"

// Slot is the smallest schedulable pure parallel opportunity, roughly one
// exposure or dither position. Every slot belongs to exactly one
// configuration (ConfigID) and one visit (VisitID).
type Slot struct {
	SlotID   string
	VisitID  string
	ConfigID string
	Cycle    int
	Inst     string
	SlotDur  float64 // seconds

	// Sky position in degrees; NaN when the catalog has no value.
	RA   float64
	Dec  float64
	ELat float64
	GLat float64

	PureSubset int // pass that allocated the slot; 0 = unallocated
	PureVisit  int // 1-based visit position within the pass
	PureConfig int // 1-based configuration position within the visit
	PureSlot   int // 1-based slot position within the configuration

	// Extra holds catalog columns not modeled above, aligned with Pool.ExtraColumns.
	Extra []string
}

// Allocated reports whether a pass has claimed the slot.
func (s *Slot) Allocated() bool {
	return s.PureSubset > 0
}

// NewSlot returns a slot with null sky coordinates.
func NewSlot(slotID, visitID, configID string, cycle int, inst string, slotDur float64) Slot {
	return Slot{
		SlotID:   slotID,
		VisitID:  visitID,
		ConfigID: configID,
		Cycle:    cycle,
		Inst:     inst,
		SlotDur:  slotDur,
		RA:       math.NaN(),
		Dec:      math.NaN(),
		ELat:     math.NaN(),
		GLat:     math.NaN(),
	}
}

// sequence is the set of tags written to a slot when a pass allocates it.
type sequence struct {
	subset int
	visit  int
	config int
	slot   int
}
