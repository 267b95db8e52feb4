// Package dispatch admits chat-submitted tasks per channel and runs each one
// through the code-generation pipeline.
//
// Admission is decided by the channel's on_concurrent policy when a task is
// already running:
//   - ask: reply with the running task and the available choices, no state change
//   - reject: reply busy, no state change
//   - queue: append a PENDING entry to the channel's FIFO queue
//   - parallel: start alongside the running task
//
// The running registry and the pending queues share one mutex so the
// "is anything running" check and the insert happen atomically.
//
// A started task gets its own Slack thread and a pipeline goroutine:
//   - create the task branch from the PR target and run setup commands (best effort)
//   - run the code generator under the generation timeout (fatal on error)
//   - collect diff stats and test results (reported, never fatal)
//   - commit, push and open a pull request ("PR creation failed" on error)
//   - record the estimated cost and post the completion message
//
// Pipelines run on a weighted semaphore sized by dispatch.max_workers.
// Every terminal state posts exactly one thread message, is written to the
// task log and published on the event hub. After a task leaves the registry
// the next queued task for its channel is promoted with freshly resolved
// channel configuration; a task whose channel disappeared is dropped with a
// channel notice.
//
// Cancel moves the latest running task to CANCELLED, cancels its context
// (the runner kills the process group) and frees the registry slot.
package dispatch
