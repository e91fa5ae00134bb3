// Package imaging provides image analyzers answering "does this image contain
// a cat, with at least this confidence".
//
// FakeAnalyzer answers randomly or with a fixed result, HTTPAnalyzer asks a
// label detection service, and Resilient wraps any analyzer with a rate limit,
// a per-attempt timeout and exponential backoff retries.
package imaging

import "context"

// Analyzer is the image analysis capability.
type Analyzer interface {
	ContainsTarget(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error)
}
