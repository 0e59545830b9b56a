package pure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Catalog column names.
const (
	ColSlotID     = "slot_id"
	ColVisitID    = "visit_id"
	ColConfigID   = "config_id"
	ColCycle      = "cycle"
	ColInst       = "inst"
	ColSlotDur    = "slotdur"
	ColRA         = "ra"
	ColDec        = "dec"
	ColELat       = "elat"
	ColGLat       = "glat"
	ColPureSubset = "pure_subset"
	ColPureVisit  = "pure_visit"
	ColPureConfig = "pure_config"
	ColPureSlot   = "pure_slot"
)

// visitIDWidth is the width numeric visit ids are zero-padded to.
const visitIDWidth = 11

var requiredColumns = []string{ColVisitID, ColConfigID, ColCycle, ColInst, ColSlotDur}

// catalogColumns is the output order of modeled columns for a pool built
// without a catalog header; extra columns follow.
var catalogColumns = []string{
	ColSlotID, ColVisitID, ColConfigID, ColCycle, ColInst, ColSlotDur,
	ColRA, ColDec, ColELat, ColGLat,
	ColPureSubset, ColPureVisit, ColPureConfig, ColPureSlot,
}

var knownColumns = func() map[string]bool {
	m := make(map[string]bool, len(catalogColumns))
	for _, c := range catalogColumns {
		m[c] = true
	}
	return m
}()

// LoadCatalog reads a slot catalog CSV file into a new pool.
func LoadCatalog(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening slot catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	pool, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.Debugf("loaded %d slots from %s", pool.Len(), path)
	return pool, nil
}

// ReadCatalog parses a slot catalog in CSV form. The header row names the
// columns; visit_id, config_id, cycle, inst and slotdur are required. Columns
// that are not modeled by Slot are kept verbatim in Slot.Extra.
func ReadCatalog(r io.Reader) (*Pool, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrCatalog)
		}
		return nil, fmt.Errorf("%w: reading header: %v", ErrCatalog, err)
	}
	index := make(map[string]int, len(header))
	columns := make([]string, 0, len(header))
	var extraColumns []string
	var extraIdx []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrCatalog, name)
		}
		index[name] = i
		columns = append(columns, name)
		if !knownColumns[name] {
			extraColumns = append(extraColumns, name)
			extraIdx = append(extraIdx, i)
		}
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", ErrCatalog, name)
		}
	}

	var slots []Slot
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrCatalog, row, err)
		}
		s, err := parseSlot(record, index)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrCatalog, row, err)
		}
		for _, i := range extraIdx {
			s.Extra = append(s.Extra, record[i])
		}
		slots = append(slots, s)
	}
	pool, err := NewPool(slots, extraColumns...)
	if err != nil {
		return nil, err
	}
	pool.columns = columns
	return pool, nil
}

func parseSlot(record []string, index map[string]int) (Slot, error) {
	cell := func(name string) (string, bool) {
		i, ok := index[name]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}
	var (
		s   Slot
		err error
	)
	s.SlotID, _ = cell(ColSlotID)
	visit, _ := cell(ColVisitID)
	s.VisitID = padVisitID(visit)
	s.ConfigID, _ = cell(ColConfigID)
	s.Inst, _ = cell(ColInst)

	cycle, _ := cell(ColCycle)
	if s.Cycle, err = strconv.Atoi(cycle); err != nil {
		return s, fmt.Errorf("cycle %q is not an integer", cycle)
	}
	dur, _ := cell(ColSlotDur)
	if s.SlotDur, err = strconv.ParseFloat(dur, 64); err != nil {
		return s, fmt.Errorf("slotdur %q is not a number", dur)
	}
	for _, c := range []struct {
		name string
		dst  *float64
	}{{ColRA, &s.RA}, {ColDec, &s.Dec}, {ColELat, &s.ELat}, {ColGLat, &s.GLat}} {
		v, ok := cell(c.name)
		if !ok || v == "" {
			*c.dst = math.NaN()
			continue
		}
		if *c.dst, err = strconv.ParseFloat(v, 64); err != nil {
			return s, fmt.Errorf("%s %q is not a number", c.name, v)
		}
	}
	for _, c := range []struct {
		name string
		dst  *int
	}{{ColPureSubset, &s.PureSubset}, {ColPureVisit, &s.PureVisit}, {ColPureConfig, &s.PureConfig}, {ColPureSlot, &s.PureSlot}} {
		v, ok := cell(c.name)
		if !ok || v == "" {
			continue
		}
		if *c.dst, err = strconv.Atoi(v); err != nil {
			return s, fmt.Errorf("%s %q is not an integer", c.name, v)
		}
	}
	return s, nil
}

// padVisitID left-pads an all-digit visit id with zeros to visitIDWidth.
func padVisitID(id string) string {
	if id == "" || len(id) >= visitIDWidth {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return strings.Repeat("0", visitIDWidth-len(id)) + id
}

// writeCatalog writes the given rows of p as CSV. Columns keep the order of
// the catalog p was read from; modeled columns the catalog lacked (the pure_*
// tags, a generated slot_id) are appended in catalogColumns order.
func writeCatalog(w io.Writer, p *Pool, rows []int) error {
	writer := csv.NewWriter(w)
	header := outputColumns(p)
	if err := writer.Write(header); err != nil {
		return err
	}
	extra := make(map[string]int, len(p.extraColumns))
	for i, name := range p.extraColumns {
		extra[name] = i
	}
	record := make([]string, len(header))
	for _, i := range rows {
		s := &p.slots[i]
		for j, name := range header {
			if k, ok := extra[name]; ok {
				record[j] = s.Extra[k]
				continue
			}
			record[j] = slotCell(s, name)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func outputColumns(p *Pool) []string {
	if len(p.columns) == 0 {
		return append(append([]string(nil), catalogColumns...), p.extraColumns...)
	}
	header := append([]string(nil), p.columns...)
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	for _, name := range catalogColumns {
		if !present[name] {
			header = append(header, name)
		}
	}
	return header
}

// slotCell renders the modeled column name of s.
func slotCell(s *Slot, name string) string {
	switch name {
	case ColSlotID:
		return s.SlotID
	case ColVisitID:
		return s.VisitID
	case ColConfigID:
		return s.ConfigID
	case ColCycle:
		return strconv.Itoa(s.Cycle)
	case ColInst:
		return s.Inst
	case ColSlotDur:
		return formatFloat(s.SlotDur)
	case ColRA:
		return formatFloat(s.RA)
	case ColDec:
		return formatFloat(s.Dec)
	case ColELat:
		return formatFloat(s.ELat)
	case ColGLat:
		return formatFloat(s.GLat)
	case ColPureSubset:
		return strconv.Itoa(s.PureSubset)
	case ColPureVisit:
		return strconv.Itoa(s.PureVisit)
	case ColPureConfig:
		return strconv.Itoa(s.PureConfig)
	case ColPureSlot:
		return strconv.Itoa(s.PureSlot)
	}
	return ""
}

// formatFloat renders v in its shortest exact form; NaN becomes an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
