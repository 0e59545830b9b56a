package pure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
)

// SummaryColumns is the header of a saved summary, in order.
var SummaryColumns = []string{"cycle", "pure_subset", "nslot", "nconfig", "nvisit", "hours"}

// SummaryRow rolls up the slots of one (cycle, pure_subset) group.
type SummaryRow struct {
	Cycle      int
	PureSubset int
	NSlot      int
	NConfig    int
	NVisit     int
	Hours      float64 // sum of slotdur / 3600, rounded to 3 decimals
}

// toHours converts seconds to hours rounded to 3 decimals.
func toHours(seconds float64) float64 {
	return math.Round(seconds/3.6) / 1000
}

// Summary groups the whole pool, including never-allocated slots, by cycle
// and pure_subset. Rows are sorted by cycle, then pure_subset.
func Summary(p *Pool) []SummaryRow {
	type key struct{ cycle, subset int }
	type group struct {
		slots   int
		configs map[string]bool
		visits  map[string]bool
		seconds float64
	}
	groups := make(map[key]*group)
	for i := range p.slots {
		s := &p.slots[i]
		k := key{s.Cycle, s.PureSubset}
		g, ok := groups[k]
		if !ok {
			g = &group{configs: make(map[string]bool), visits: make(map[string]bool)}
			groups[k] = g
		}
		g.slots++
		g.configs[s.ConfigID] = true
		g.visits[s.VisitID] = true
		g.seconds += s.SlotDur
	}

	rows := make([]SummaryRow, 0, len(groups))
	for k, g := range groups {
		rows = append(rows, SummaryRow{
			Cycle:      k.cycle,
			PureSubset: k.subset,
			NSlot:      g.slots,
			NConfig:    len(g.configs),
			NVisit:     len(g.visits),
			Hours:      toHours(g.seconds),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Cycle != rows[j].Cycle {
			return rows[i].Cycle < rows[j].Cycle
		}
		return rows[i].PureSubset < rows[j].PureSubset
	})
	return rows
}

// Summarize returns the summary table of the scenario and prints it.
func (s *Scenario) Summarize() []SummaryRow {
	rows := Summary(s.pool)
	if err := PrintSummary(s.out(), rows); err != nil {
		logrus.Warnf("printing summary: %v", err)
	}
	return rows
}

// PrintSummary writes rows as an aligned text table.
func PrintSummary(w io.Writer, rows []SummaryRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, c := range SummaryColumns {
		if i > 0 {
			_, _ = fmt.Fprint(tw, "\t")
		}
		_, _ = fmt.Fprint(tw, c)
	}
	_, _ = fmt.Fprintln(tw, "\t")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%.3f\t\n",
			r.Cycle, r.PureSubset, r.NSlot, r.NConfig, r.NVisit, r.Hours)
	}
	return tw.Flush()
}

// WriteSummary writes rows as CSV with a SummaryColumns header.
func WriteSummary(w io.Writer, rows []SummaryRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SummaryColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Cycle),
			strconv.Itoa(r.PureSubset),
			strconv.Itoa(r.NSlot),
			strconv.Itoa(r.NConfig),
			strconv.Itoa(r.NVisit),
			strconv.FormatFloat(r.Hours, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSummary reads a summary written by Save or WriteSummary.
func ReadSummary(path string) ([]SummaryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(SummaryColumns)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading summary header: %w", err)
	}
	for i, c := range SummaryColumns {
		if header[i] != c {
			return nil, fmt.Errorf("summary column %d is %q, want %q", i, header[i], c)
		}
	}

	var rows []SummaryRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading summary line %d: %w", line, err)
		}
		var r SummaryRow
		ints := []*int{&r.Cycle, &r.PureSubset, &r.NSlot, &r.NConfig, &r.NVisit}
		for i, dst := range ints {
			if *dst, err = strconv.Atoi(record[i]); err != nil {
				return nil, fmt.Errorf("summary line %d, %s: %w", line, SummaryColumns[i], err)
			}
		}
		if r.Hours, err = strconv.ParseFloat(record[5], 64); err != nil {
			return nil, fmt.Errorf("summary line %d, hours: %w", line, err)
		}
		rows = append(rows, r)
	}
}

// Save writes the summary table to path as CSV.
func (s *Scenario) Save(path string) error {
	if err := writeFile(path, func(w io.Writer) error {
		return WriteSummary(w, Summary(s.pool))
	}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out(), "wrote %s\n", path)
	return nil
}

// SaveSlots writes the allocated slots (pure_subset > 0) to path as CSV, in
// ingestion order, with every catalog column in the catalog's own column
// order followed by any pure_* tag it lacked. Nothing is written when no slot
// has been allocated.
func (s *Scenario) SaveSlots(path string) error {
	var rows []int
	for i := range s.pool.slots {
		if s.pool.slots[i].Allocated() {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		logrus.Warnf("no allocated slots; %s not written", path)
		return nil
	}
	if err := writeFile(path, func(w io.Writer) error {
		return writeCatalog(w, s.pool, rows)
	}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out(), "wrote %s\n", path)
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
