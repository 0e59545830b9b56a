package pure

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jwpure/jwpure/pure/trace"
)

// Default per-pass caps.
const (
	DefaultMaxSlot   = 999
	DefaultMaxConfig = 999
)

// PassResult describes what one allocation pass claimed.
type PassResult struct {
	Pass       int
	Constraint string
	NSlot      int
	NConfig    int
	NVisit     int
	Hours      float64
}

// selection is a candidate slot with the sequence numbers it was given.
type selection struct {
	row  int
	seq  sequence
	kept bool
}

// AllocateSlots runs one allocation pass: it claims the slots that satisfy
// constraint, keeping at most maxSlot slots per configuration and maxConfig
// configurations per visit, and tags them with the next pass number.
//
// Evaluation is staged against the live pool:
//  1. slot stage: live slots whose slot predicates do not rule them out;
//  2. configuration stage: configurations aggregated from (1) (nslot,
//     configdur) whose configuration predicates do not rule them out;
//  3. visit stage: nconfig counts the configurations kept in (2);
//  4. the full constraint must be true for a slot to become a candidate.
//
// Caps are applied in ingestion order. Caps below 1, or a constraint that
// matches nothing, allocate nothing but still consume a pass number. A nil
// constraint matches every live slot.
func (s *Scenario) AllocateSlots(constraint Expr, maxSlot, maxConfig int) (PassResult, error) {
	if err := Validate(constraint); err != nil {
		return PassResult{}, fmt.Errorf("allocate slots: %w", err)
	}
	s.pass++
	p := s.pool
	result := PassResult{Pass: s.pass, Constraint: constraintString(constraint)}

	st := p.stages(constraint)
	logrus.Debugf("pass %d: %d live slots, %d after slot stage, %d/%d configs kept, %d visits, %d candidates",
		s.pass, len(p.Live()), len(st.slotRows), len(st.kept), len(st.aggs.ConfigOrder), len(st.aggs.VisitOrder), len(st.candidates))

	selections := selectCandidates(p, st.candidates, s.pass, maxSlot, maxConfig)
	configs := make(map[string]bool)
	visits := make(map[string]bool)
	seconds := 0.0
	for _, sel := range selections {
		if !sel.kept || !p.tag(sel.row, sel.seq) {
			continue
		}
		slot := &p.slots[sel.row]
		result.NSlot++
		configs[slot.ConfigID] = true
		visits[slot.VisitID] = true
		seconds += slot.SlotDur
	}
	result.NConfig = len(configs)
	result.NVisit = len(visits)
	result.Hours = toHours(seconds)

	if s.trace != nil {
		s.trace.RecordPass(s.tracePass(result, st, selections))
	}
	logrus.Infof("pass %d: allocated %d slots in %d configs across %d visits (%.3f hours)",
		result.Pass, result.NSlot, result.NConfig, result.NVisit, result.Hours)
	return result, nil
}

// staged holds the intermediate tables of one staged evaluation.
type staged struct {
	slotRows    []int // live rows not ruled out by slot predicates
	aggs        *Aggregates
	keptConfigs map[string]bool
	kept        []string // kept config ids in first-appearance order
	candidates  []int    // rows for which the full constraint is true
}

// stages evaluates constraint against the live rows of p in slot,
// configuration and joint order. Configuration aggregates are built from the
// slot-stage survivors and nconfig counts the configurations kept.
func (p *Pool) stages(constraint Expr) *staged {
	st := &staged{}
	env := &evalEnv{pool: p, stage: stageSlot}
	for _, row := range p.Live() {
		if env.evaluate(constraint, row) != truthFalse {
			st.slotRows = append(st.slotRows, row)
		}
	}
	st.aggs = aggregateConfigs(p, st.slotRows)

	env = &evalEnv{pool: p, stage: stageConfig, aggs: st.aggs}
	st.keptConfigs = make(map[string]bool, len(st.aggs.ConfigOrder))
	for _, id := range st.aggs.ConfigOrder {
		if env.evaluate(constraint, st.aggs.Configs[id].Rows[0]) != truthFalse {
			st.keptConfigs[id] = true
			st.kept = append(st.kept, id)
		}
	}
	st.aggs.aggregateVisits(st.kept)

	env = &evalEnv{pool: p, stage: stageJoint, aggs: st.aggs}
	for _, row := range st.slotRows {
		if !st.keptConfigs[p.slots[row].ConfigID] {
			continue
		}
		if env.evaluate(constraint, row) == truthTrue {
			st.candidates = append(st.candidates, row)
		}
	}
	return st
}

// selectCandidates numbers candidates by visit, configuration and slot in
// first-appearance order and marks the ones inside the caps.
func selectCandidates(p *Pool, candidates []int, pass, maxSlot, maxConfig int) []selection {
	type configGroup struct {
		id   string
		rows []int
	}
	type visitGroup struct {
		configs []*configGroup
		byID    map[string]*configGroup
	}
	visits := make(map[string]*visitGroup)
	var visitOrder []string
	for _, row := range candidates {
		s := &p.slots[row]
		v, ok := visits[s.VisitID]
		if !ok {
			v = &visitGroup{byID: make(map[string]*configGroup)}
			visits[s.VisitID] = v
			visitOrder = append(visitOrder, s.VisitID)
		}
		c, ok := v.byID[s.ConfigID]
		if !ok {
			c = &configGroup{id: s.ConfigID}
			v.byID[s.ConfigID] = c
			v.configs = append(v.configs, c)
		}
		c.rows = append(c.rows, row)
	}

	selections := make([]selection, 0, len(candidates))
	for vi, visitID := range visitOrder {
		for ci, c := range visits[visitID].configs {
			for si, row := range c.rows {
				seq := sequence{subset: pass, visit: vi + 1, config: ci + 1, slot: si + 1}
				selections = append(selections, selection{
					row:  row,
					seq:  seq,
					kept: seq.config <= maxConfig && seq.slot <= maxSlot,
				})
			}
		}
	}
	return selections
}

func (s *Scenario) tracePass(result PassResult, st *staged, selections []selection) trace.PassRecord {
	p := s.pool
	visitID := s.trace.Config.VisitID
	record := trace.PassRecord{Pass: result.Pass, Constraint: result.Constraint}
	for _, row := range st.slotRows {
		if slot := &p.slots[row]; slot.VisitID == visitID {
			record.Slots = append(record.Slots, trace.SlotRecord{SlotID: slot.SlotID, ConfigID: slot.ConfigID})
		}
	}
	for _, id := range st.aggs.ConfigOrder {
		if c := st.aggs.Configs[id]; c.VisitID == visitID {
			record.Configs = append(record.Configs, trace.ConfigRecord{
				ConfigID:  c.ConfigID,
				NSlot:     c.NSlot,
				ConfigDur: c.ConfigDur,
				Kept:      st.keptConfigs[id],
			})
		}
	}
	if v, ok := st.aggs.Visits[visitID]; ok {
		record.Visit = &trace.VisitRecord{VisitID: v.VisitID, NConfig: v.NConfig}
	}
	for _, sel := range selections {
		slot := &p.slots[sel.row]
		if slot.VisitID != visitID {
			continue
		}
		record.Selections = append(record.Selections, trace.SelectionRecord{
			SlotID:     slot.SlotID,
			ConfigID:   slot.ConfigID,
			PureVisit:  sel.seq.visit,
			PureConfig: sel.seq.config,
			PureSlot:   sel.seq.slot,
			Allocated:  sel.kept,
		})
	}
	return record
}

func constraintString(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}
