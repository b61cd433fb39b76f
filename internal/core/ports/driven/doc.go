// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ArtifactRepository: Read-only source of drift artifacts
//   - GateProbe: Runs checks against the live instance
//   - IndexerLister: Lists indexers configured on the live instance
//   - IndexerResolver: Maps a plugin to one configured indexer
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ArtifactWatcher: Change notifications for drift-check --watch.
//   - DiagnosticsCollector: Evidence capture on failed gate runs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
