// Package domain contains the core entities of the knowledge backend:
// tenants, documents, chunks, sync cursors and the error taxonomy shared
// by services and adapters. It has no dependencies outside the standard
// library and defines no behaviour beyond invariant checks.
package domain
