// Package log provides structured logging for the coordinator using
// zerolog. Init sets up the global JSON (or console) logger once at
// startup; every other package gets a component-scoped child logger
// via WithComponent, and WithExchangeID/WithWorkItemKind narrow that
// further for exchange-lifecycle and dispatch logging.
package log
