package pure

import (
	"fmt"
	"math"
	"strconv"
)

// Pool is the record store: an arena of slot rows owned by a single Scenario.
// Row indices are stable for the life of the pool and follow ingestion order.
// Only the pure_* tags of a row ever change, and only from 0 to a pass number.
type Pool struct {
	slots        []Slot
	extraColumns []string
	columns      []string // source header order, if read from a catalog
}

// NewPool copies slots into a new pool, filling in missing slot ids with the
// 1-based row number. Slot ids must be unique, a config_id may belong to
// only one visit_id and slotdur must be a finite non-negative number.
func NewPool(slots []Slot, extraColumns ...string) (*Pool, error) {
	p := &Pool{
		slots:        make([]Slot, len(slots)),
		extraColumns: append([]string(nil), extraColumns...),
	}
	owner := make(map[string]string, len(slots))
	seen := make(map[string]bool, len(slots))
	for i, s := range slots {
		if s.ConfigID == "" || s.VisitID == "" {
			return nil, fmt.Errorf("%w: row %d: config_id and visit_id are required", ErrCatalog, i+1)
		}
		if len(s.Extra) != len(extraColumns) {
			return nil, fmt.Errorf("%w: row %d: %d extra values for %d extra columns",
				ErrCatalog, i+1, len(s.Extra), len(extraColumns))
		}
		if visit, ok := owner[s.ConfigID]; ok && visit != s.VisitID {
			return nil, fmt.Errorf("%w: row %d: config %s belongs to visits %s and %s",
				ErrCatalog, i+1, s.ConfigID, visit, s.VisitID)
		}
		owner[s.ConfigID] = s.VisitID
		if math.IsNaN(s.SlotDur) || math.IsInf(s.SlotDur, 0) || s.SlotDur < 0 {
			return nil, fmt.Errorf("%w: row %d: invalid slotdur %v", ErrCatalog, i+1, s.SlotDur)
		}
		if s.PureSubset < 0 {
			return nil, fmt.Errorf("%w: row %d: negative pure_subset %d", ErrCatalog, i+1, s.PureSubset)
		}
		if s.SlotID == "" {
			s.SlotID = strconv.Itoa(i + 1)
		}
		if seen[s.SlotID] {
			return nil, fmt.Errorf("%w: row %d: duplicate slot_id %s", ErrCatalog, i+1, s.SlotID)
		}
		seen[s.SlotID] = true
		s.Extra = append([]string(nil), s.Extra...)
		p.slots[i] = s
	}
	return p, nil
}

// Len returns the number of rows in the pool, allocated or not.
func (p *Pool) Len() int {
	return len(p.slots)
}

// Slot returns a copy of row i.
func (p *Pool) Slot(i int) Slot {
	return p.slots[i]
}

// Slots returns a copy of every row in ingestion order.
func (p *Pool) Slots() []Slot {
	return append([]Slot(nil), p.slots...)
}

// ExtraColumns returns the names of catalog columns carried in Slot.Extra.
func (p *Pool) ExtraColumns() []string {
	return append([]string(nil), p.extraColumns...)
}

// Live returns the indices of unallocated rows in ingestion order.
func (p *Pool) Live() []int {
	rows := make([]int, 0, len(p.slots))
	for i := range p.slots {
		if !p.slots[i].Allocated() {
			rows = append(rows, i)
		}
	}
	return rows
}

// MaxPass returns the largest pure_subset tag present, 0 for a fresh pool.
func (p *Pool) MaxPass() int {
	maxPass := 0
	for i := range p.slots {
		maxPass = max(maxPass, p.slots[i].PureSubset)
	}
	return maxPass
}

// tag records a pass allocation on row i. Allocated rows keep their tags.
func (p *Pool) tag(i int, seq sequence) bool {
	s := &p.slots[i]
	if s.Allocated() {
		return false
	}
	s.PureSubset = seq.subset
	s.PureVisit = seq.visit
	s.PureConfig = seq.config
	s.PureSlot = seq.slot
	return true
}
