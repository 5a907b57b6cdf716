// Package models contains the GORM persistence models for the sync engine.
// Domain entities in internal/domain/integration carry no ORM tags; the
// ToDomain/FromDomain mappers here convert between the two.
//
// Natural keys are enforced with unique indexes:
//   - orders: (external_id, store_id)
//   - products: (external_id, store_id)
//   - order_items: (order_id, external_product_id)
package models
