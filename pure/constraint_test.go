package pure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwpure/jwpure/pure"
	"github.com/jwpure/jwpure/pure/internal/testutil"
)

func TestConstraint_String_RendersQueryLanguage(t *testing.T) {
	slot, config, visit := pure.ConstraintParameters()
	tests := []struct {
		name string
		expr pure.Expr
		want string
	}{
		{"text comparison", slot.Inst.Ne("NIRCam"), "slot.inst != 'NIRCam'"},
		{"number comparison", config.NSlot.Ge(3), "config.nslot >= 3"},
		{"fractional", slot.SlotDur.Lt(450.5), "slot.slotdur < 450.5"},
		{"between", slot.SlotDur.Between(300, 900), "slot.slotdur.between(300, 900)"},
		{"isin", slot.Inst.In("MIRI", "NIRISS"), "slot.inst.isin('MIRI', 'NIRISS')"},
		{"is null", slot.RA.IsNull(), "slot.ra.is_null()"},
		{"is not null", slot.GLat.IsNotNull(), "slot.glat.is_not_null()"},
		{"and", pure.And(slot.Cycle.Eq(1), visit.NConfig.Ge(2)), "slot.cycle == 1 & visit.nconfig >= 2"},
		{"or inside and", pure.And(pure.Or(slot.Cycle.Eq(1), slot.Cycle.Eq(2)), config.NSlot.Gt(1)),
			"(slot.cycle == 1 | slot.cycle == 2) & config.nslot > 1"},
		{"and inside or", pure.Or(pure.And(slot.Cycle.Eq(1), slot.Cycle.Eq(2)), config.NSlot.Gt(1)),
			"slot.cycle == 1 & slot.cycle == 2 | config.nslot > 1"},
		{"not leaf", pure.Not(slot.Inst.Eq("MIRI")), "~slot.inst == 'MIRI'"},
		{"not group", pure.Not(pure.Or(slot.Cycle.Eq(1), slot.Cycle.Eq(2))), "~(slot.cycle == 1 | slot.cycle == 2)"},
		{"quote escaped", slot.Inst.Eq("it's"), `slot.inst == 'it\'s'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}
}

func TestConstraint_String_MalformedNot(t *testing.T) {
	// GIVEN NOT nodes built without the Not constructor
	empty := &pure.Logical{Op: pure.OpNot}
	nilArg := &pure.Logical{Op: pure.OpNot, Args: []pure.Expr{nil}}

	// THEN they render without panicking and still fail validation
	assert.NotPanics(t, func() { _ = empty.String() })
	assert.Equal(t, "~<nil>", empty.String())
	assert.Equal(t, "~<nil>", nilArg.String())
	assert.Error(t, pure.Validate(empty))
}

func TestConstraint_Validate_ReportsConstructionErrors(t *testing.T) {
	slot, config, _ := pure.ConstraintParameters()
	tests := []struct {
		name string
		expr pure.Expr
		want error
	}{
		{"unknown field", pure.Field{Table: pure.TableVisit, Name: "nslot"}.Eq(1), pure.ErrUnknownField},
		{"number field, text value", config.NSlot.Eq("three"), pure.ErrTypeMismatch},
		{"text field, number value", slot.Inst.In("MIRI", 4), pure.ErrTypeMismatch},
		{"unsupported value type", slot.Cycle.Eq(true), pure.ErrTypeMismatch},
		{"reversed range", slot.SlotDur.Between(10, 1), pure.ErrInvalidRange},
		{"empty isin", slot.Inst.In(), pure.ErrEmptyMembership},
		{"null check on unknown field", pure.Field{Table: pure.TableSlot, Name: "nope"}.IsNull(), pure.ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pure.Validate(tt.expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestConstraint_Validate_JoinsOperandErrors(t *testing.T) {
	slot, config, _ := pure.ConstraintParameters()

	// GIVEN an AND with two bad operands
	err := pure.Validate(pure.And(slot.Inst.Gt(1), config.NSlot.Between(5, 2), slot.Cycle.Eq(1)))

	// THEN both failures are reported
	assert.True(t, errors.Is(err, pure.ErrTypeMismatch))
	assert.True(t, errors.Is(err, pure.ErrInvalidRange))
}

func TestConstraint_Validate_StructuralErrors(t *testing.T) {
	slot, _, _ := pure.ConstraintParameters()
	assert.Error(t, pure.Validate(pure.And()))
	assert.Error(t, pure.Validate(&pure.Logical{Op: pure.OpNot, Args: []pure.Expr{slot.Cycle.Eq(1), slot.Cycle.Eq(2)}}))
	assert.Error(t, pure.Validate(pure.Or(slot.Cycle.Eq(1), nil)))
	assert.Error(t, pure.Validate(&pure.Comparison{Field: slot.Cycle, Op: "=~", Value: pure.Number(1)}))
	assert.NoError(t, pure.Validate(nil))
}

func TestLookupField(t *testing.T) {
	f, err := pure.LookupField("config.configdur")
	require.NoError(t, err)
	assert.Equal(t, pure.KindNumber, f.Kind())

	f, err = pure.LookupField("slot.inst")
	require.NoError(t, err)
	assert.Equal(t, pure.KindText, f.Kind())

	for _, name := range []string{"nslot", "slot.nslot", "visit.inst", ""} {
		_, err := pure.LookupField(name)
		assert.True(t, errors.Is(err, pure.ErrUnknownField), "%q: got %v", name, err)
	}
}

func TestFields_ListsEveryParameterOnce(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range pure.Fields() {
		assert.False(t, seen[f.Qualified()], "duplicate %s", f)
		seen[f.Qualified()] = true
		assert.NotEqual(t, pure.KindInvalid, f.Kind(), f.Qualified())
	}
	for _, want := range []string{"slot.cycle", "slot.inst", "slot.slotdur", "config.nslot", "config.configdur", "visit.nconfig"} {
		assert.True(t, seen[want], want)
	}
}

func TestPoolEvaluate_MaskAlignedToLiveRows(t *testing.T) {
	// GIVEN the fixture catalog
	sc := testutil.LoadScenario(t)
	slot, config, visit := pure.ConstraintParameters()

	// WHEN a mixed constraint is evaluated without allocating
	mask, err := sc.Pool().Evaluate(pure.And(slot.Inst.Eq("MIRI"), config.NSlot.Ge(3), visit.NConfig.Ge(3)))
	require.NoError(t, err)

	// THEN the 1-slot config 2001001d is dropped before nconfig is counted,
	// leaving the three 3-slot MIRI configs of visit 2001001
	require.Len(t, mask, sc.Pool().Len())
	var matched []string
	for i, ok := range mask {
		if ok {
			matched = append(matched, sc.Pool().Slot(i).ConfigID)
		}
	}
	assert.Len(t, matched, 9)
	assert.NotContains(t, matched, "2001001d")
	assert.Equal(t, 0, sc.Pass(), "evaluation must not consume a pass")
}

func TestPoolEvaluate_NSlotCountsSlotStageSurvivors(t *testing.T) {
	// GIVEN one config with 2 MIRI and 3 NIRCam slots
	var rows []pure.Slot
	for i, inst := range []string{"MIRI", "MIRI", "NIRCam", "NIRCam", "NIRCam"} {
		rows = append(rows, pure.NewSlot(fmt.Sprintf("s%d", i+1), "v1", "c1", 1, inst, 100))
	}
	pool, err := pure.NewPool(rows)
	require.NoError(t, err)
	sc := testutil.NewScenario(pool)
	slot, config, _ := pure.ConstraintParameters()
	constraint := pure.And(slot.Inst.Eq("MIRI"), config.NSlot.Ge(3))

	// WHEN the constraint is evaluated and then allocated
	mask, err := sc.Pool().Evaluate(constraint)
	require.NoError(t, err)
	result, err := sc.AllocateSlots(constraint, 999, 999)
	require.NoError(t, err)

	// THEN nslot counts only the 2 MIRI slots in both paths, so nothing matches
	assert.Equal(t, []bool{false, false, false, false, false}, mask)
	assert.Equal(t, 0, result.NSlot)
}

func TestPoolEvaluate_AgreesWithUncappedAllocation(t *testing.T) {
	slot, config, visit := pure.ConstraintParameters()
	constraints := []pure.Expr{
		nil,
		fixtureConstraint(3),
		fixtureConstraint(2),
		pure.Or(slot.Inst.Eq("NIRCam"), visit.NConfig.Ge(3)),
		pure.And(slot.Inst.In("MIRI", "NIRISS"), config.NSlot.Ge(3), config.ConfigDur.Lt(2000)),
		pure.Not(slot.RA.Gt(0)),
	}
	for _, c := range constraints {
		name := "nil"
		if c != nil {
			name = c.String()
		}
		t.Run(name, func(t *testing.T) {
			// GIVEN a fixture pool with one earlier pass applied
			sc := testutil.LoadScenario(t)
			_, err := sc.AllocateSlots(slot.Cycle.Eq(2), 2, 1)
			require.NoError(t, err)
			live := sc.Pool().Live()

			// WHEN evaluated, then allocated without caps
			mask, err := sc.Pool().Evaluate(c)
			require.NoError(t, err)
			result, err := sc.AllocateSlots(c, 999, 999)
			require.NoError(t, err)

			// THEN exactly the masked rows are allocated
			require.Len(t, mask, len(live))
			matched := 0
			for i, row := range live {
				s := sc.Pool().Slot(row)
				assert.Equal(t, mask[i], s.PureSubset == result.Pass, s.SlotID)
				if mask[i] {
					matched++
				}
			}
			assert.Equal(t, matched, result.NSlot)
		})
	}
}

func TestPoolEvaluate_InvalidConstraint(t *testing.T) {
	sc := testutil.LoadScenario(t)
	slot, _, _ := pure.ConstraintParameters()
	_, err := sc.Pool().Evaluate(slot.Inst.Ge(2))
	assert.True(t, errors.Is(err, pure.ErrTypeMismatch))
}

func TestValueOf(t *testing.T) {
	v, err := pure.ValueOf(int64(3))
	require.NoError(t, err)
	assert.Equal(t, pure.KindNumber, v.Kind())
	assert.Equal(t, 3.0, v.Float())

	v, err = pure.ValueOf("MIRI")
	require.NoError(t, err)
	assert.Equal(t, "MIRI", v.Str())

	_, err = pure.ValueOf([]int{1})
	assert.True(t, errors.Is(err, pure.ErrTypeMismatch))
}
