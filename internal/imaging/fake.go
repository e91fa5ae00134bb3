package imaging

import (
	"context"
	"math/rand/v2"
	"sync"
)

// FakeAnalyzer answers without looking at the image.
type FakeAnalyzer struct {
	// mu protects rnd, which is not safe for concurrent use.
	mu sync.Mutex
	// rnd produces random answers when fixed is nil.
	rnd *rand.Rand
	// fixed, when set, is returned for every image.
	fixed *bool
}

// NewFakeAnalyzer returns an analyzer answering randomly.
// The same seed yields the same sequence of answers.
func NewFakeAnalyzer(seed uint64) *FakeAnalyzer {
	return &FakeAnalyzer{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // Not used for security.
	}
}

// NewFixedAnalyzer returns an analyzer that always answers result.
func NewFixedAnalyzer(result bool) *FakeAnalyzer {
	return &FakeAnalyzer{
		fixed: &result,
	}
}

// ContainsTarget returns the next answer. It only fails when ctx is done.
func (a *FakeAnalyzer) ContainsTarget(ctx context.Context, _ []byte, _ float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if a.fixed != nil {
		return *a.fixed, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.rnd.IntN(2) == 1, nil
}
