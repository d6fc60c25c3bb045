// Package services implements the core application logic: the background
// task scheduler and its handlers, the hybrid search engine, and the
// vector index lifecycle.
//
// Services depend only on domain types and the driven ports; adapters
// are injected at wiring time.
package services
