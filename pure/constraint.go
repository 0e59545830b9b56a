package pure

import (
	"errors"
	"fmt"
	"strings"
)

// Expr is a lazy constraint over slots, configurations and visits. Nothing is
// evaluated until the expression is applied to a pool.
//
// The concrete node types are Comparison, Range, Membership, NullCheck and
// Logical. Build leaves from Field methods and compose them with And, Or, Not.
type Expr interface {
	// String renders the expression in the pure/query text language.
	String() string
	// Validate reports construction errors and unknown or mistyped fields.
	Validate() error

	eval(env *evalEnv, row int) truth
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

var validCompareOps = map[CompareOp]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLe: true, OpGt: true, OpGe: true,
}

// LogicalOp combines sub-expressions.
type LogicalOp string

const (
	OpAnd LogicalOp = "&"
	OpOr  LogicalOp = "|"
	OpNot LogicalOp = "~"
)

// Comparison is "field op value".
type Comparison struct {
	Field Field
	Op    CompareOp
	Value Value
}

// Range is "field between low and high", both bounds inclusive.
type Range struct {
	Field Field
	Low   Value
	High  Value
}

// Membership is "field in values".
type Membership struct {
	Field  Field
	Values []Value
}

// NullCheck tests whether a field has no value.
type NullCheck struct {
	Field Field
	Null  bool
}

// Logical is an AND, OR (n-ary) or NOT (unary) node.
type Logical struct {
	Op   LogicalOp
	Args []Expr
}

// invalid carries an error found while building an expression.
type invalid struct {
	err error
}

// Eq returns field == v.
func (f Field) Eq(v any) Expr { return f.compare(OpEq, v) }

// Ne returns field != v.
func (f Field) Ne(v any) Expr { return f.compare(OpNe, v) }

// Lt returns field < v.
func (f Field) Lt(v any) Expr { return f.compare(OpLt, v) }

// Le returns field <= v.
func (f Field) Le(v any) Expr { return f.compare(OpLe, v) }

// Gt returns field > v.
func (f Field) Gt(v any) Expr { return f.compare(OpGt, v) }

// Ge returns field >= v.
func (f Field) Ge(v any) Expr { return f.compare(OpGe, v) }

// Compare returns "field op v" for an operator chosen at run time.
func (f Field) Compare(op CompareOp, v any) Expr { return f.compare(op, v) }

func (f Field) compare(op CompareOp, v any) Expr {
	val, err := ValueOf(v)
	if err != nil {
		return &invalid{fmt.Errorf("%s %s: %w", f, op, err)}
	}
	return &Comparison{Field: f, Op: op, Value: val}
}

// Between returns lo <= field <= hi. lo must not exceed hi.
func (f Field) Between(lo, hi any) Expr {
	low, err := ValueOf(lo)
	if err != nil {
		return &invalid{fmt.Errorf("%s.between: %w", f, err)}
	}
	high, err := ValueOf(hi)
	if err != nil {
		return &invalid{fmt.Errorf("%s.between: %w", f, err)}
	}
	r := &Range{Field: f, Low: low, High: high}
	if err := r.checkBounds(); err != nil {
		return &invalid{err}
	}
	return r
}

// In returns true when field equals any of values.
func (f Field) In(values ...any) Expr {
	if len(values) == 0 {
		return &invalid{fmt.Errorf("%s.isin: %w", f, ErrEmptyMembership)}
	}
	m := &Membership{Field: f, Values: make([]Value, 0, len(values))}
	for _, v := range values {
		val, err := ValueOf(v)
		if err != nil {
			return &invalid{fmt.Errorf("%s.isin: %w", f, err)}
		}
		m.Values = append(m.Values, val)
	}
	return m
}

// IsNull returns true when field has no value.
func (f Field) IsNull() Expr { return &NullCheck{Field: f, Null: true} }

// IsNotNull returns true when field has a value.
func (f Field) IsNotNull() Expr { return &NullCheck{Field: f, Null: false} }

// And is true when every operand is true.
func And(exprs ...Expr) Expr { return &Logical{Op: OpAnd, Args: exprs} }

// Or is true when any operand is true.
func Or(exprs ...Expr) Expr { return &Logical{Op: OpOr, Args: exprs} }

// Not negates e.
func Not(e Expr) Expr { return &Logical{Op: OpNot, Args: []Expr{e}} }

// Validate checks an expression tree. A nil expression is valid and matches
// every slot.
func Validate(e Expr) error {
	if e == nil {
		return nil
	}
	return e.Validate()
}

func checkField(f Field, values ...Value) error {
	kind := f.Kind()
	if kind == KindInvalid {
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	for _, v := range values {
		if v.kind != kind {
			return fmt.Errorf("%w: %s is %s, got %s operand %s", ErrTypeMismatch, f, kind, v.kind, v)
		}
	}
	return nil
}

func (c *Comparison) Validate() error {
	if !validCompareOps[c.Op] {
		return fmt.Errorf("unknown comparison operator %q", c.Op)
	}
	return checkField(c.Field, c.Value)
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value)
}

func (r *Range) checkBounds() error {
	if err := checkField(r.Field, r.Low, r.High); err != nil {
		return err
	}
	if r.Low.IsNull() || r.High.IsNull() || compareValues(r.Low, r.High) > 0 {
		return fmt.Errorf("%w: %s.between(%s, %s)", ErrInvalidRange, r.Field, r.Low, r.High)
	}
	return nil
}

func (r *Range) Validate() error {
	return r.checkBounds()
}

func (r *Range) String() string {
	return fmt.Sprintf("%s.between(%s, %s)", r.Field, r.Low, r.High)
}

func (m *Membership) Validate() error {
	if len(m.Values) == 0 {
		return fmt.Errorf("%s.isin: %w", m.Field, ErrEmptyMembership)
	}
	return checkField(m.Field, m.Values...)
}

func (m *Membership) String() string {
	parts := make([]string, len(m.Values))
	for i, v := range m.Values {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s.isin(%s)", m.Field, strings.Join(parts, ", "))
}

func (n *NullCheck) Validate() error {
	return checkField(n.Field)
}

func (n *NullCheck) String() string {
	if n.Null {
		return n.Field.String() + ".is_null()"
	}
	return n.Field.String() + ".is_not_null()"
}

func (l *Logical) Validate() error {
	switch l.Op {
	case OpAnd, OpOr:
		if len(l.Args) == 0 {
			return fmt.Errorf("%q needs at least one operand", l.Op)
		}
	case OpNot:
		if len(l.Args) != 1 {
			return fmt.Errorf("%q needs exactly one operand, got %d", l.Op, len(l.Args))
		}
	default:
		return fmt.Errorf("unknown logical operator %q", l.Op)
	}
	var errs []error
	for _, arg := range l.Args {
		if arg == nil {
			errs = append(errs, fmt.Errorf("%q operand is nil", l.Op))
			continue
		}
		if err := arg.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Logical) String() string {
	if l.Op == OpNot {
		if len(l.Args) == 0 {
			return "~" + operandString(nil)
		}
		arg := operandString(l.Args[0])
		if _, ok := l.Args[0].(*Logical); ok {
			return "~(" + arg + ")"
		}
		return "~" + arg
	}
	parts := make([]string, len(l.Args))
	for i, arg := range l.Args {
		parts[i] = operandString(arg)
		// & binds tighter than |, so only OR operands of an AND need grouping.
		if inner, ok := arg.(*Logical); ok && l.Op == OpAnd && inner.Op == OpOr && len(inner.Args) > 1 {
			parts[i] = "(" + parts[i] + ")"
		}
	}
	return strings.Join(parts, " "+string(l.Op)+" ")
}

func operandString(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

func (i *invalid) Validate() error { return i.err }

func (i *invalid) String() string { return "<invalid: " + i.err.Error() + ">" }
