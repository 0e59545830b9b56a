// Package pure assesses how many pure parallel slots a pool of scheduled
// observations can yield under declarative constraints.
//
// # Reading Guide
//
// Start with these files to understand the allocation engine:
//   - slot.go, pool.go: the slot record and the row arena that owns it
//   - constraint.go, eval.go: the expression tree and its three-valued evaluator
//   - allocate.go: the staged, capacity-bounded allocation pass
//
// # Architecture
//
// The pure package holds the record store, expression tree, aggregator,
// allocator and summarizer. Supporting code lives in sub-packages:
//   - pure/query/: text constraint language ("slot.inst != 'NIRCam' & ...")
//   - pure/plan/: YAML plans describing a sequence of allocation passes
//   - pure/trace/: per-visit allocation trace records
//   - pure/export/: SQLite export of the pool and its summary
//
// # Groups
//
// Configurations and visits are not objects. They are group-by relations over
// the slot rows (config_id, visit_id) and are rebuilt from the live pool at the
// start of every allocation pass.
package pure
