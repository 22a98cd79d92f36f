// Package core contains the connection broker domain contracts, entities, and
// orchestration logic: the platform registry, anti-forgery state, the callback
// state machine, and connection persistence contracts. Provider-specific
// strategies and storage adapters depend on this package; core must not depend
// on them.
package core
