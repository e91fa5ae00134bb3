// Package security implements the gRPC transport of the security engine.
//
// Messages are protobuf well-known types: statuses travel as
// wrapperspb.StringValue, images as wrapperspb.BytesValue, and sensors and
// status snapshots as structpb documents encoded by package wire.
package security
