// Package syncengine contains the Synchronization bounded context.
// This context reconciles mutable entity state (inventory counts, prices,
// product attributes) across independently-writable sources: the local system
// of record and the external marketplaces.
//
// Key concepts:
//   - SyncEvent: A proposed mutation flowing through the engine
//   - SyncQueue: Ordered buffer of pending events awaiting propagation
//   - VersionAllocator: Per-entity monotonic version issuance
//   - ChangeLogEntry: Append-only field-level audit record, basis for rollback
//   - ConflictRecord: A detected disagreement between competing writes
//   - ConflictResolver: Configurable strategies producing a reconciled value
//   - TargetAdapter / StateLookup: Port interfaces to destination systems
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (Shopify, MercadoLibre, local store) are in the infrastructure layer
package syncengine
