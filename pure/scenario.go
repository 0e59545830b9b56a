package pure

import (
	"io"
	"os"

	"github.com/jwpure/jwpure/pure/trace"
)

// Scenario assesses one pure parallel observing scenario. It owns its pool
// exclusively; allocation passes mutate the pool in place and are not safe
// for concurrent use.
type Scenario struct {
	pool  *Pool
	pass  int
	trace *trace.AllocationTrace

	// Out receives the printed summary and "wrote <path>" notices.
	// Nil means os.Stdout.
	Out io.Writer
}

// NewScenario wraps a pool. A pool that already carries pass tags (a saved
// allocation) resumes numbering after the largest tag.
func NewScenario(pool *Pool) *Scenario {
	return &Scenario{
		pool: pool,
		pass: pool.MaxPass(),
	}
}

// LoadScenario builds a Scenario from a slot catalog file.
func LoadScenario(path string) (*Scenario, error) {
	pool, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return NewScenario(pool), nil
}

// Pool returns the scenario's record store.
func (s *Scenario) Pool() *Pool {
	return s.pool
}

// Pass returns the number of the most recent allocation pass.
func (s *Scenario) Pass() int {
	return s.pass
}

// SetTrace follows visitID through every subsequent pass. An empty id
// disables tracing. Numeric ids are padded like catalog visit ids.
func (s *Scenario) SetTrace(visitID string) {
	config := trace.TraceConfig{VisitID: padVisitID(visitID)}
	if !config.Enabled() {
		s.trace = nil
		return
	}
	s.trace = trace.NewAllocationTrace(config)
}

// Trace returns the allocation trace, or nil when tracing is off.
func (s *Scenario) Trace() *trace.AllocationTrace {
	return s.trace
}

func (s *Scenario) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}
	return s.Out
}
