// Package health provides HTTP and TCP reachability checkers, used to
// probe a cluster endpoint before starting an AAE exchange (see
// pkg/clients' HTTPAAEClient.Ping). The coordinator process's own
// /health, /ready, /live endpoints live in pkg/metrics and do not use
// this package.
//
// Checker is deliberately small: Check(ctx) Result plus Type(). Callers
// that need consecutive-failure tracking keep a Status next to a Checker
// and pass each check's Result to Status.Update.
package health
