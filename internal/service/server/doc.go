// Package server runs catpoint-server: it loads settings, builds the state
// repository, image analyzer and listeners, and serves the security engine
// over gRPC plus an optional HTTP health and metrics endpoint.
package server
