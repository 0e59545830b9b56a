package pure_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwpure/jwpure/pure"
	"github.com/jwpure/jwpure/pure/internal/testutil"
)

func TestLoadCatalog_Fixture(t *testing.T) {
	sc := testutil.LoadScenario(t)
	p := sc.Pool()

	assert.Equal(t, 28, p.Len())
	assert.Equal(t, []string{"program"}, p.ExtraColumns())
	assert.Equal(t, 0, sc.Pass())

	first := p.Slot(0)
	assert.Equal(t, "1001001-a-1", first.SlotID)
	assert.Equal(t, "00001001001", first.VisitID)
	assert.Equal(t, "1001001a", first.ConfigID)
	assert.Equal(t, 1, first.Cycle)
	assert.Equal(t, "NIRISS", first.Inst)
	assert.Equal(t, 600.0, first.SlotDur)
	assert.Equal(t, 10.5, first.RA)
	assert.Equal(t, -30.125, first.GLat)
	assert.Equal(t, []string{"1001"}, first.Extra)
	assert.False(t, first.Allocated())

	assert.True(t, math.IsNaN(p.Slot(26).RA), "empty ra cell is null")
}

func TestReadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantMsg string
	}{
		{"empty input", "", "missing header"},
		{"missing column", "visit_id,config_id,cycle,inst\n1,a,1,MIRI\n", `"slotdur"`},
		{"duplicate column", "visit_id,config_id,cycle,inst,slotdur,inst\n", "duplicate column"},
		{"bad cycle", "visit_id,config_id,cycle,inst,slotdur\n1,a,one,MIRI,10\n", "cycle"},
		{"bad slotdur", "visit_id,config_id,cycle,inst,slotdur\n1,a,1,MIRI,ten\n", "slotdur"},
		{"nan slotdur", "visit_id,config_id,cycle,inst,slotdur\n1,a,1,MIRI,NaN\n", "invalid slotdur"},
		{"infinite slotdur", "visit_id,config_id,cycle,inst,slotdur\n1,a,1,MIRI,+Inf\n", "invalid slotdur"},
		{"negative slotdur", "visit_id,config_id,cycle,inst,slotdur\n1,a,1,MIRI,-5\n", "invalid slotdur"},
		{"bad ra", "visit_id,config_id,cycle,inst,slotdur,ra\n1,a,1,MIRI,10,north\n", "ra"},
		{"bad tag", "visit_id,config_id,cycle,inst,slotdur,pure_subset\n1,a,1,MIRI,10,x\n", "pure_subset"},
		{"negative tag", "visit_id,config_id,cycle,inst,slotdur,pure_subset\n1,a,1,MIRI,10,-2\n", "negative"},
		{"config in two visits", "visit_id,config_id,cycle,inst,slotdur\n1,a,1,MIRI,10\n2,a,1,MIRI,10\n", "belongs to visits"},
		{"duplicate slot", "slot_id,visit_id,config_id,cycle,inst,slotdur\ns,1,a,1,MIRI,10\ns,1,a,1,MIRI,10\n", "duplicate slot_id"},
		{"empty config", "visit_id,config_id,cycle,inst,slotdur\n1,,1,MIRI,10\n", "required"},
		{"ragged row", "visit_id,config_id,cycle,inst,slotdur\n1,a,1,MIRI\n", "row 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pure.ReadCatalog(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.True(t, errors.Is(err, pure.ErrCatalog), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadCatalog_SynthesizesSlotIDsAndKeepsTextVisitIDs(t *testing.T) {
	p, err := pure.ReadCatalog(strings.NewReader(
		"visit_id,config_id,cycle,inst,slotdur\nV-1,a,3,MIRI,10\n42,b,3,MIRI,20.5\n"))
	require.NoError(t, err)

	assert.Equal(t, "1", p.Slot(0).SlotID)
	assert.Equal(t, "2", p.Slot(1).SlotID)
	assert.Equal(t, "V-1", p.Slot(0).VisitID)
	assert.Equal(t, "00000000042", p.Slot(1).VisitID)
	assert.True(t, math.IsNaN(p.Slot(0).Dec), "absent coordinate columns are null")
	assert.Empty(t, p.ExtraColumns())
}

func TestNewPool_RejectsInvalidSlotDur(t *testing.T) {
	for _, dur := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5} {
		_, err := pure.NewPool([]pure.Slot{pure.NewSlot("s1", "v1", "c1", 1, "MIRI", dur)})
		assert.True(t, errors.Is(err, pure.ErrCatalog), "slotdur %v: got %v", dur, err)
	}
	_, err := pure.NewPool([]pure.Slot{pure.NewSlot("s1", "v1", "c1", 1, "MIRI", 0)})
	assert.NoError(t, err, "zero duration is allowed")
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := pure.LoadCatalog(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestSaveSlots_RoundTripResumesPassNumbers(t *testing.T) {
	// GIVEN a scenario after two passes
	sc := testutil.LoadScenario(t)
	slot, _, _ := pure.ConstraintParameters()
	_, err := sc.AllocateSlots(slot.Cycle.Eq(2), 3, 999)
	require.NoError(t, err)
	_, err = sc.AllocateSlots(slot.Inst.Eq("NIRISS"), 1, 999)
	require.NoError(t, err)

	// WHEN the allocated slots are saved and reloaded
	path := filepath.Join(t.TempDir(), "allocated.csv")
	require.NoError(t, sc.SaveSlots(path))
	reloaded, err := pure.LoadScenario(path)
	require.NoError(t, err)

	// THEN only allocated rows come back, with their tags and extra columns
	p := reloaded.Pool()
	assert.Equal(t, 10+3, p.Len())
	assert.Equal(t, 2, reloaded.Pass())
	assert.Equal(t, []string{"program"}, p.ExtraColumns())
	for _, s := range p.Slots() {
		assert.True(t, s.Allocated(), s.SlotID)
		assert.Positive(t, s.PureSlot, s.SlotID)
	}
	assert.Empty(t, p.Live())

	// THEN a null coordinate survives the round trip
	found := false
	for _, s := range p.Slots() {
		if s.SlotID == "2001001-c-3" {
			found = true
			assert.True(t, math.IsNaN(s.RA))
		}
	}
	assert.True(t, found)
}

func TestSaveSlots_KeepsCatalogColumnOrder(t *testing.T) {
	// GIVEN the fixture after one pass
	sc := testutil.LoadScenario(t)
	slot, _, _ := pure.ConstraintParameters()
	_, err := sc.AllocateSlots(slot.Cycle.Eq(2), 999, 999)
	require.NoError(t, err)

	// WHEN the allocated slots are saved
	path := filepath.Join(t.TempDir(), "allocated.csv")
	require.NoError(t, sc.SaveSlots(path))

	// THEN the fixture's header order is kept and the tags follow it
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	header, _, _ := strings.Cut(string(data), "\n")
	assert.Equal(t,
		"slot_id,visit_id,config_id,cycle,inst,slotdur,ra,dec,elat,glat,program,pure_subset,pure_visit,pure_config,pure_slot",
		header)
}

func TestSaveSlots_ReorderedCatalog(t *testing.T) {
	// GIVEN a catalog whose extra column leads and whose slot ids are missing
	pool, err := pure.ReadCatalog(strings.NewReader(
		"program,inst,slotdur,config_id,visit_id,cycle\n7,MIRI,10,a,1,1\n7,MIRI,20,a,1,1\n"))
	require.NoError(t, err)
	sc := testutil.NewScenario(pool)
	_, err = sc.AllocateSlots(nil, 999, 999)
	require.NoError(t, err)

	// WHEN saved
	path := filepath.Join(t.TempDir(), "allocated.csv")
	require.NoError(t, sc.SaveSlots(path))

	// THEN source columns keep their positions and the missing modeled
	// columns are appended
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, []string{
		"program,inst,slotdur,config_id,visit_id,cycle,slot_id,ra,dec,elat,glat,pure_subset,pure_visit,pure_config,pure_slot",
		"7,MIRI,10,a,00000000001,1,1,,,,,1,1,1,1",
		"7,MIRI,20,a,00000000001,1,2,,,,,1,1,1,2",
	}, lines)

	// THEN the file reads back as the same slots
	reloaded, err := pure.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"program"}, reloaded.ExtraColumns())
	assert.Equal(t, "2", reloaded.Slot(1).SlotID)
	assert.Equal(t, 2, reloaded.Slot(1).PureSlot)
}

func TestSaveSlots_NothingAllocated_WritesNothing(t *testing.T) {
	sc := testutil.LoadScenario(t)
	path := filepath.Join(t.TempDir(), "allocated.csv")

	require.NoError(t, sc.SaveSlots(path))

	_, err := pure.LoadCatalog(path)
	assert.Error(t, err, "no file is written")
}
