// Package common holds helpers shared by catpoint-server and catpointctl.
//
// It provides a gRPC client wrapper with call timeouts, and the actor
// (hostname/username) that clients attach to every call as metadata so the
// server can log who armed, disarmed or tripped what.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
