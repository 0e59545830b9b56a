package pure

import (
	"fmt"
	"strings"
)

// Table names the relation a constraint field belongs to.
type Table string

const (
	TableSlot   Table = "slot"
	TableConfig Table = "config"
	TableVisit  Table = "visit"
)

// Kind is the value type of a field.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Field is a handle on one constraint parameter. Fields are obtained from
// ConstraintParameters or LookupField and build lazy predicates.
type Field struct {
	Table Table
	Name  string
}

// Qualified returns the table-qualified name, e.g. "config.nslot".
func (f Field) Qualified() string {
	return string(f.Table) + "." + f.Name
}

func (f Field) String() string {
	return f.Qualified()
}

// fieldDef describes how a field is typed and read for one row.
type fieldDef struct {
	kind Kind
	read func(env *evalEnv, row int) (Value, bool)
}

func slotNumber(get func(s *Slot) float64) func(*evalEnv, int) (Value, bool) {
	return func(env *evalEnv, row int) (Value, bool) {
		return Number(get(&env.pool.slots[row])), true
	}
}

var fieldDefs = map[Field]fieldDef{
	{TableSlot, "cycle"}:       {KindNumber, slotNumber(func(s *Slot) float64 { return float64(s.Cycle) })},
	{TableSlot, "slotdur"}:     {KindNumber, slotNumber(func(s *Slot) float64 { return s.SlotDur })},
	{TableSlot, "ra"}:          {KindNumber, slotNumber(func(s *Slot) float64 { return s.RA })},
	{TableSlot, "dec"}:         {KindNumber, slotNumber(func(s *Slot) float64 { return s.Dec })},
	{TableSlot, "elat"}:        {KindNumber, slotNumber(func(s *Slot) float64 { return s.ELat })},
	{TableSlot, "glat"}:        {KindNumber, slotNumber(func(s *Slot) float64 { return s.GLat })},
	{TableSlot, "pure_subset"}: {KindNumber, slotNumber(func(s *Slot) float64 { return float64(s.PureSubset) })},
	{TableSlot, "inst"}: {KindText, func(env *evalEnv, row int) (Value, bool) {
		return Text(env.pool.slots[row].Inst), true
	}},
	{TableConfig, "nslot"}: {KindNumber, func(env *evalEnv, row int) (Value, bool) {
		c := env.config(row)
		if c == nil {
			return Value{}, false
		}
		return Number(float64(c.NSlot)), true
	}},
	{TableConfig, "configdur"}: {KindNumber, func(env *evalEnv, row int) (Value, bool) {
		c := env.config(row)
		if c == nil {
			return Value{}, false
		}
		return Number(c.ConfigDur), true
	}},
	{TableVisit, "nconfig"}: {KindNumber, func(env *evalEnv, row int) (Value, bool) {
		v := env.visit(row)
		if v == nil {
			return Value{}, false
		}
		return Number(float64(v.NConfig)), true
	}},
}

// fieldOrder is the listing order of Fields.
var fieldOrder = []Field{
	{TableSlot, "cycle"}, {TableSlot, "inst"}, {TableSlot, "slotdur"},
	{TableSlot, "ra"}, {TableSlot, "dec"}, {TableSlot, "elat"}, {TableSlot, "glat"},
	{TableSlot, "pure_subset"},
	{TableConfig, "nslot"}, {TableConfig, "configdur"},
	{TableVisit, "nconfig"},
}

// SlotParams are the slot-level constraint parameters.
type SlotParams struct {
	Cycle      Field
	Inst       Field
	SlotDur    Field
	RA         Field
	Dec        Field
	ELat       Field
	GLat       Field
	PureSubset Field
}

// ConfigParams are the configuration-level constraint parameters.
type ConfigParams struct {
	NSlot     Field
	ConfigDur Field
}

// VisitParams are the visit-level constraint parameters.
type VisitParams struct {
	NConfig Field
}

// ConstraintParameters returns the field handles used to express constraints.
func ConstraintParameters() (SlotParams, ConfigParams, VisitParams) {
	slot := SlotParams{
		Cycle:      Field{TableSlot, "cycle"},
		Inst:       Field{TableSlot, "inst"},
		SlotDur:    Field{TableSlot, "slotdur"},
		RA:         Field{TableSlot, "ra"},
		Dec:        Field{TableSlot, "dec"},
		ELat:       Field{TableSlot, "elat"},
		GLat:       Field{TableSlot, "glat"},
		PureSubset: Field{TableSlot, "pure_subset"},
	}
	config := ConfigParams{
		NSlot:     Field{TableConfig, "nslot"},
		ConfigDur: Field{TableConfig, "configdur"},
	}
	visit := VisitParams{
		NConfig: Field{TableVisit, "nconfig"},
	}
	return slot, config, visit
}

// Fields lists every recognized constraint field.
func Fields() []Field {
	return append([]Field(nil), fieldOrder...)
}

// LookupField resolves a qualified name such as "slot.inst".
func LookupField(qualified string) (Field, error) {
	table, name, ok := strings.Cut(qualified, ".")
	if !ok {
		return Field{}, fmt.Errorf("%w: %q is not table-qualified", ErrUnknownField, qualified)
	}
	f := Field{Table: Table(table), Name: name}
	if _, ok := fieldDefs[f]; !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, qualified)
	}
	return f, nil
}

// Kind returns the value type of f, or KindInvalid if f is not recognized.
func (f Field) Kind() Kind {
	return fieldDefs[f].kind
}
