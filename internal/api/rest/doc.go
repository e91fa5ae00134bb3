// Package rest exposes health, Prometheus metrics and a read-only status
// document over HTTP.
package rest
