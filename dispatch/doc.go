// Package dispatch provides the core abstractions of the signal-dispatch
// runtime: entities and dispatch transactions, the handler registry, the
// tenant binding, the external collaborator interfaces (entity repository,
// applied-signal ledger, lifecycle policy), and the observability interfaces
// shared by all pipeline stages.
//
// The concrete pipeline stages live in the sub-packages:
//   - dispatch/pipeline: the posting pipeline gate-keeping inbound signals
//   - dispatch/sharding: the ordered, sharded delivery lanes
//   - dispatch/endpoint: the transactional apply-and-persist protocol
//   - dispatch/engine: the wiring facade running one worker per shard
//
// Storage engines implementing the repository and ledger interfaces:
//   - dispatch/memoryengine: in-memory, for tests and demos
//   - dispatch/postgresengine: Postgres-backed, with pgx/sql/sqlx adapters
package dispatch
