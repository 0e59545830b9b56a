package pure

// ConfigAggregate is the derived view of one configuration.
type ConfigAggregate struct {
	VisitID   string
	ConfigID  string
	NSlot     int
	ConfigDur float64 // seconds
	Rows      []int   // member rows in ingestion order
}

// VisitAggregate is the derived view of one visit.
type VisitAggregate struct {
	VisitID string
	NConfig int
	Configs []string // member config ids in first-appearance order
}

// Aggregates indexes configurations and visits built from a set of rows.
// Empty groups never appear.
type Aggregates struct {
	Configs     map[string]*ConfigAggregate
	Visits      map[string]*VisitAggregate
	ConfigOrder []string
	VisitOrder  []string
}

// Aggregate groups rows of p by config_id (nslot, configdur) and counts the
// distinct configurations of each visit (nconfig).
func Aggregate(p *Pool, rows []int) *Aggregates {
	a := aggregateConfigs(p, rows)
	a.aggregateVisits(a.ConfigOrder)
	return a
}

func aggregateConfigs(p *Pool, rows []int) *Aggregates {
	a := &Aggregates{
		Configs: make(map[string]*ConfigAggregate),
		Visits:  make(map[string]*VisitAggregate),
	}
	for _, row := range rows {
		s := &p.slots[row]
		c, ok := a.Configs[s.ConfigID]
		if !ok {
			c = &ConfigAggregate{VisitID: s.VisitID, ConfigID: s.ConfigID}
			a.Configs[s.ConfigID] = c
			a.ConfigOrder = append(a.ConfigOrder, s.ConfigID)
		}
		c.NSlot++
		c.ConfigDur += s.SlotDur
		c.Rows = append(c.Rows, row)
	}
	return a
}

// aggregateVisits rebuilds the visit index from the given configurations.
func (a *Aggregates) aggregateVisits(configIDs []string) {
	a.Visits = make(map[string]*VisitAggregate)
	a.VisitOrder = a.VisitOrder[:0]
	for _, id := range configIDs {
		c := a.Configs[id]
		v, ok := a.Visits[c.VisitID]
		if !ok {
			v = &VisitAggregate{VisitID: c.VisitID}
			a.Visits[c.VisitID] = v
			a.VisitOrder = append(a.VisitOrder, c.VisitID)
		}
		v.NConfig++
		v.Configs = append(v.Configs, id)
	}
}
