package pure

// truth is a three-valued (Kleene) logic value. A predicate over a table that
// is not resolved at the current stage, or over a null value, is unknown.
type truth int8

const (
	truthUnknown truth = iota
	truthFalse
	truthTrue
)

func truthOf(b bool) truth {
	if b {
		return truthTrue
	}
	return truthFalse
}

// stage selects which tables an evaluation can resolve.
type stage int

const (
	stageSlot   stage = iota // slot fields only
	stageConfig              // configuration aggregates only
	stageJoint               // everything
)

func (s stage) String() string {
	switch s {
	case stageSlot:
		return "slot"
	case stageConfig:
		return "config"
	default:
		return "joint"
	}
}

func (s stage) resolves(t Table) bool {
	switch s {
	case stageSlot:
		return t == TableSlot
	case stageConfig:
		return t == TableConfig
	default:
		return true
	}
}

// evalEnv is the pool state an expression is evaluated against.
type evalEnv struct {
	pool  *Pool
	stage stage
	aggs  *Aggregates
}

func (env *evalEnv) config(row int) *ConfigAggregate {
	if env.aggs == nil {
		return nil
	}
	return env.aggs.Configs[env.pool.slots[row].ConfigID]
}

func (env *evalEnv) visit(row int) *VisitAggregate {
	if env.aggs == nil {
		return nil
	}
	return env.aggs.Visits[env.pool.slots[row].VisitID]
}

// read returns the value of f for row, or false when it cannot be resolved.
func (env *evalEnv) read(f Field, row int) (Value, bool) {
	if !env.stage.resolves(f.Table) {
		return Value{}, false
	}
	def, ok := fieldDefs[f]
	if !ok {
		return Value{}, false
	}
	return def.read(env, row)
}

// evaluate applies e to row. A nil expression is true.
func (env *evalEnv) evaluate(e Expr, row int) truth {
	if e == nil {
		return truthTrue
	}
	return e.eval(env, row)
}

func (c *Comparison) eval(env *evalEnv, row int) truth {
	v, ok := env.read(c.Field, row)
	if !ok || v.IsNull() || c.Value.IsNull() {
		return truthUnknown
	}
	cmp := compareValues(v, c.Value)
	switch c.Op {
	case OpEq:
		return truthOf(cmp == 0)
	case OpNe:
		return truthOf(cmp != 0)
	case OpLt:
		return truthOf(cmp < 0)
	case OpLe:
		return truthOf(cmp <= 0)
	case OpGt:
		return truthOf(cmp > 0)
	case OpGe:
		return truthOf(cmp >= 0)
	}
	return truthUnknown
}

func (r *Range) eval(env *evalEnv, row int) truth {
	v, ok := env.read(r.Field, row)
	if !ok || v.IsNull() {
		return truthUnknown
	}
	return truthOf(compareValues(v, r.Low) >= 0 && compareValues(v, r.High) <= 0)
}

func (m *Membership) eval(env *evalEnv, row int) truth {
	v, ok := env.read(m.Field, row)
	if !ok || v.IsNull() {
		return truthUnknown
	}
	for _, candidate := range m.Values {
		if !candidate.IsNull() && compareValues(v, candidate) == 0 {
			return truthTrue
		}
	}
	return truthFalse
}

func (n *NullCheck) eval(env *evalEnv, row int) truth {
	v, ok := env.read(n.Field, row)
	if !ok {
		return truthUnknown
	}
	return truthOf(v.IsNull() == n.Null)
}

func (l *Logical) eval(env *evalEnv, row int) truth {
	switch l.Op {
	case OpNot:
		switch env.evaluate(l.Args[0], row) {
		case truthTrue:
			return truthFalse
		case truthFalse:
			return truthTrue
		default:
			return truthUnknown
		}
	case OpAnd:
		result := truthTrue
		for _, arg := range l.Args {
			switch env.evaluate(arg, row) {
			case truthFalse:
				return truthFalse
			case truthUnknown:
				result = truthUnknown
			}
		}
		return result
	case OpOr:
		result := truthFalse
		for _, arg := range l.Args {
			switch env.evaluate(arg, row) {
			case truthTrue:
				return truthTrue
			case truthUnknown:
				result = truthUnknown
			}
		}
		return result
	}
	return truthUnknown
}

func (i *invalid) eval(*evalEnv, int) truth { return truthUnknown }

// Evaluate applies e to the live (unallocated) rows of p with the same staged
// evaluation an allocation pass uses, and returns a mask aligned to p.Live().
// A row is true when it would be a candidate of AllocateSlots before caps.
func (p *Pool) Evaluate(e Expr) ([]bool, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}
	candidate := make(map[int]bool)
	for _, row := range p.stages(e).candidates {
		candidate[row] = true
	}
	live := p.Live()
	mask := make([]bool, len(live))
	for i, row := range live {
		mask[i] = candidate[row]
	}
	return mask, nil
}
