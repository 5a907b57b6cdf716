// Package integration contains the commerce synchronization bounded context.
// It keeps the warehouse datastore in step with an external commerce platform
// that owns orders and catalog data.
//
// Key concepts:
//   - Store: a tenant-owned connection to one commerce platform instance
//   - Order / OrderItem / Product: local mirrors keyed by (external id, store id)
//   - CommerceClient: port for talking to the platform REST API
//   - StatusMapper: external order status to internal workflow status
//   - AfterDate: incremental cursor policy for order pulls
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
