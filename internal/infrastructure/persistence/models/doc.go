// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// domain type with ToDomain / XModelFromDomain.
//
// Structure:
//   - base.go: version and timestamp columns shared by aggregate tables
//   - shipment.go: shipments, active poll set, verification requests
//   - product.go: products and shipment consumptions
//   - escrow.go: payment escrows
//   - ledger.go: material and payment balances, unique assets, sequences
//   - identity.go: role grants
//   - outbox.go: transactional outbox
package models
