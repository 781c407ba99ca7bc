// Package sim provides the discrete-event simulation engine for patient
// flow through a hospital under constrained shared resources.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the seven event types and their fixed tie-break ranks
//   - ledger.go: per-unit resource availability and the waiting queues
//   - simulator.go: the event loop, handlers, and the callback gate
//
// # Architecture
//
// The sim package owns the causal backbone: a heap-ordered event queue
// drained by a single consumer goroutine. Command handlers (commands.go) and
// workflow callbacks only enqueue; no two events are ever processed
// concurrently. Patients, ledger units and queue entries reference each
// other by id only.
//
// Sub-packages:
//   - sim/planner/: the evolutionary rescheduler choosing deferred
//     admission times for patients that could not be admitted
//   - sim/store/: the Postgres implementation of the Ledger contract
//
// All stochastic choices (task durations, complication flags, ER
// re-diagnoses, arrival offsets, the genetic search) draw from a
// partitioned, seedable RNG (rng.go), so a run is fully reproducible from
// its master seed and input sequence.
package sim
