// Package records holds the GORM row types for the storefront tables and the
// mappers between rows and domain aggregates.
package records
