// Package eventcore implements an event ingestion and agent-orchestration
// core for business operations platforms.
//
// The pipeline accepts heterogeneous events (webhooks, scheduled triggers,
// document uploads, user actions), validates them against per-source
// schemas, queues them in strict FIFO order, and dispatches them to
// registered agents according to declarative routing rules:
//   - Ingestor validates, timestamps, audits, and queues incoming events
//   - Bus fans queued events out to subscribers in ingestion order
//   - Orchestrator resolves routing rules and executes agents with
//     conditional gating, parallel or sequential fan-out, per-rule
//     timeouts, and failure isolation
//
// Delivery is at-least-once within a single process. Only validation
// failures are synchronous; everything past the queue is reported through
// logs, audit records, and counters.
package eventcore
