// Package services contains the core business logic: tenant resolution,
// the chunking and embedding pipeline, similarity retrieval, sync
// orchestration and grounded answer assembly. Services depend only on the
// domain package and the ports; adapters are injected.
package services
