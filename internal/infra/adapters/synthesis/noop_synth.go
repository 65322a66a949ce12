package synthesis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"social-video-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.VideoSynthesizer = (*NoopSynthesizer)(nil)

// NoopSynthesizer implements adapter.VideoSynthesizer for local/dev runs.
// Every operation reports done with a fake video URI after a couple of polls,
// so the whole lifecycle can be exercised without provider credentials.
type NoopSynthesizer struct {
	seq   atomic.Int64
	polls atomic.Int64
}

func NewNoopSynthesizer() *NoopSynthesizer {
	return &NoopSynthesizer{}
}

func (n *NoopSynthesizer) Submit(ctx context.Context, req adapter.SubmitRequest) (adapter.OperationStatus, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return adapter.OperationStatus{}, ctx.Err()
	}
	id := n.seq.Add(1)
	return adapter.OperationStatus{
		Name: fmt.Sprintf("operations/noop-%d", id),
		Done: false,
	}, nil
}

func (n *NoopSynthesizer) PollOperation(ctx context.Context, operationName string) (adapter.OperationStatus, error) {
	if n.polls.Add(1)%2 == 0 {
		return adapter.OperationStatus{
			Name:      operationName,
			Done:      true,
			VideoURIs: []string{fmt.Sprintf("gs://noop-bucket/%s/sample_0.mp4", operationName)},
		}, nil
	}
	return adapter.OperationStatus{Name: operationName}, nil
}
