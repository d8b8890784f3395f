// Package database manages the SQLite connection backing the GridWatch
// account store.
//
// It provides lifecycle management (Open/Close), health checks, and an
// embedded-filesystem migration runner. The monitor registry deliberately
// does not use this package: telemetry state is in-memory only and is lost
// on restart by design.
package database
