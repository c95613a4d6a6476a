package service

// Package service implements supervision of periodic simulation components.
//
// Overview
// The Supervisor owns an ordered collection of model.Component values and a
// cancellation context derived at construction. Clients register components,
// then Start launches exactly one goroutine per component. Stop cancels the
// context and waits for every goroutine, bounded by a grace period.
//
// Each component gets its own emitter. Lines emitted by any component are
// written to the shared model.Sink under a single output lock, so lines are
// never interleaved. Write failures are logged and counted, and never
// reach the component.
//
// Lifecycle:
//
//   Created --Start--> Started --Stop--> Stopping --> Stopped
//      |                                                 ^
//      +---------------------Close-----------------------+
//
//   Supervisor                 handle{component}          Sink
//       |                          |                        |
//   AddComponent -> register       |                        |
//       | Start() --------------->| go Run(token, emitter) |
//       |                          | Emit(line) ----------->| WriteLine (output lock)
//       | Stop() -> mute, cancel ->| returns, done closed   |
//       |<------- await done ------|                        |
//
// Invariants:
//   - Every component registered before Start is launched exactly once.
//   - Components cannot be added once Start was called.
//   - No line reaches the sink after Stop returns, except a single write
//     which was already stalled when the grace period ran out.
//   - Stop returns within the grace period, reporting stuck components
//     as ErrShutdownTimeout.
//
// An optional status reporter, scheduled with gocron from a cron expression
// or an ISO8601 duration, logs the supervisor state and per component
// counters while the supervisor runs.
