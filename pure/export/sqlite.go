// Package export writes a scenario's pool and summary to a SQLite database so
// allocations can be inspected with ordinary SQL.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/jwpure/jwpure/pure"
)

const driverName = "sqlite"

const summarySchema = `CREATE TABLE summary (
	cycle INTEGER NOT NULL,
	pure_subset INTEGER NOT NULL,
	nslot INTEGER NOT NULL,
	nconfig INTEGER NOT NULL,
	nvisit INTEGER NOT NULL,
	hours REAL NOT NULL,
	PRIMARY KEY (cycle, pure_subset)
)`

// slotColumns are the modeled slot columns and their SQL types, in order.
var slotColumns = []struct {
	name, sqlType string
}{
	{pure.ColSlotID, "TEXT PRIMARY KEY"},
	{pure.ColVisitID, "TEXT NOT NULL"},
	{pure.ColConfigID, "TEXT NOT NULL"},
	{pure.ColCycle, "INTEGER NOT NULL"},
	{pure.ColInst, "TEXT NOT NULL"},
	{pure.ColSlotDur, "REAL NOT NULL"},
	{pure.ColRA, "REAL"},
	{pure.ColDec, "REAL"},
	{pure.ColELat, "REAL"},
	{pure.ColGLat, "REAL"},
	{pure.ColPureSubset, "INTEGER NOT NULL"},
	{pure.ColPureVisit, "INTEGER NOT NULL"},
	{pure.ColPureConfig, "INTEGER NOT NULL"},
	{pure.ColPureSlot, "INTEGER NOT NULL"},
}

// Export writes tables slot (every row, allocated or not, with catalog extra
// columns as TEXT) and summary into a new SQLite database at path. An
// existing file at path is replaced. Everything is written in one transaction.
func Export(ctx context.Context, path string, sc *pure.Scenario) (err error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning export: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	pool := sc.Pool()
	if err := writeSlots(ctx, tx, pool); err != nil {
		return err
	}
	summary := pure.Summary(pool)
	if err := writeSummary(ctx, tx, summary); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing export: %w", err)
	}
	logrus.Infof("exported %d slots and %d summary rows to %s", pool.Len(), len(summary), path)
	return nil
}

func writeSlots(ctx context.Context, tx *sql.Tx, pool *pure.Pool) error {
	extra := pool.ExtraColumns()
	defs := make([]string, 0, len(slotColumns)+len(extra))
	names := make([]string, 0, len(slotColumns)+len(extra))
	for _, c := range slotColumns {
		defs = append(defs, quoteIdent(c.name)+" "+c.sqlType)
		names = append(names, quoteIdent(c.name))
	}
	for _, name := range extra {
		defs = append(defs, quoteIdent(name)+" TEXT")
		names = append(names, quoteIdent(name))
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE slot ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("creating slot table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO slot ("+strings.Join(names, ", ")+") VALUES ("+placeholders+")")
	if err != nil {
		return fmt.Errorf("preparing slot insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range pool.Slots() {
		args := []any{
			s.SlotID, s.VisitID, s.ConfigID, s.Cycle, s.Inst, s.SlotDur,
			nullable(s.RA), nullable(s.Dec), nullable(s.ELat), nullable(s.GLat),
			s.PureSubset, s.PureVisit, s.PureConfig, s.PureSlot,
		}
		for _, v := range s.Extra {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting slot %s: %w", s.SlotID, err)
		}
	}
	return nil
}

func writeSummary(ctx context.Context, tx *sql.Tx, rows []pure.SummaryRow) error {
	if _, err := tx.ExecContext(ctx, summarySchema); err != nil {
		return fmt.Errorf("creating summary table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO summary (cycle, pure_subset, nslot, nconfig, nvisit, hours) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing summary insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Cycle, r.PureSubset, r.NSlot, r.NConfig, r.NVisit, r.Hours); err != nil {
			return fmt.Errorf("inserting summary row (%d, %d): %w", r.Cycle, r.PureSubset, err)
		}
	}
	return nil
}

// ReadSummary reads the summary table of an exported database.
func ReadSummary(ctx context.Context, path string) ([]pure.SummaryRow, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx,
		"SELECT cycle, pure_subset, nslot, nconfig, nvisit, hours FROM summary ORDER BY cycle, pure_subset")
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []pure.SummaryRow
	for rows.Next() {
		var r pure.SummaryRow
		if err := rows.Scan(&r.Cycle, &r.PureSubset, &r.NSlot, &r.NConfig, &r.NVisit, &r.Hours); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
