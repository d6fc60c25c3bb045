// Package driving defines the interfaces through which external actors
// (REST API, CLI, filesystem watcher) drive the core services.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
package driving
