package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwpure/jwpure/pure"
	"github.com/jwpure/jwpure/pure/internal/testutil"
)

func allocatedFixture(t *testing.T) *pure.Scenario {
	t.Helper()
	sc := testutil.LoadScenario(t)
	slot, _, _ := pure.ConstraintParameters()
	_, err := sc.AllocateSlots(slot.Cycle.Eq(2), 999, 999)
	require.NoError(t, err)
	return sc
}

func TestExport_SummaryMatchesPool(t *testing.T) {
	// GIVEN a scenario after one pass
	sc := allocatedFixture(t)
	path := filepath.Join(t.TempDir(), "scenario.db")
	ctx := context.Background()

	// WHEN exported and the summary read back
	require.NoError(t, Export(ctx, path, sc))
	got, err := ReadSummary(ctx, path)
	require.NoError(t, err)

	// THEN it equals the in-memory summary
	if diff := cmp.Diff(pure.Summary(sc.Pool()), got); diff != "" {
		t.Errorf("ReadSummary() mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_SlotTable(t *testing.T) {
	sc := allocatedFixture(t)
	path := filepath.Join(t.TempDir(), "scenario.db")
	ctx := context.Background()
	require.NoError(t, Export(ctx, path, sc))

	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// THEN every row is present, allocated or not
	var total, allocated int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM slot").Scan(&total))
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM slot WHERE pure_subset > 0").Scan(&allocated))
	assert.Equal(t, 28, total)
	assert.Equal(t, 10, allocated)

	// THEN a missing coordinate is NULL and extra columns are kept
	var ra sql.NullFloat64
	var program string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT ra, "program" FROM slot WHERE slot_id = ?`, "2001001-c-3").Scan(&ra, &program))
	assert.False(t, ra.Valid)
	assert.Equal(t, "2001", program)

	// THEN sequence numbers are stored
	var pureSlot int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT pure_slot FROM slot WHERE slot_id = ?", "2001001-c-3").Scan(&pureSlot))
	assert.Equal(t, 3, pureSlot)
}

func TestExport_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o644))
	ctx := context.Background()

	require.NoError(t, Export(ctx, path, testutil.LoadScenario(t)))

	rows, err := ReadSummary(ctx, path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadSummary_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	_, err := ReadSummary(context.Background(), path)
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"program"`, quoteIdent("program"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
