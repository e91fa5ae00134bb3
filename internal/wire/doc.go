// Package wire converts domain values to and from protobuf well-known types.
//
// The gRPC API and the JSON state file both carry sensors and statuses as
// google.protobuf.Struct documents, so the field names live here only.
package wire
