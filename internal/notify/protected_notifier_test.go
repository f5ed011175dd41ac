package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/domain/result"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) AnnounceResult(ctx context.Context, r result.Result) error {
	s.calls++
	return s.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &stubNotifier{err: errors.New("provider down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})

	ctx := context.Background()
	r := result.Result{ID: "r-1"}

	// two failures reach the threshold
	for i := 0; i < 2; i++ {
		if err := n.AnnounceResult(ctx, r); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}

	// circuit is open now; inner must not be reached
	if err := n.AnnounceResult(ctx, r); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	if inner.calls != 2 {
		t.Fatalf("open circuit should not call inner, saw %d calls", inner.calls)
	}
}

func TestProtectedNotifier_HalfOpensAfterCooldownAndRecloses(t *testing.T) {
	inner := &stubNotifier{err: errors.New("provider down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         20 * time.Millisecond,
	})

	ctx := context.Background()
	r := result.Result{ID: "r-1"}

	if err := n.AnnounceResult(ctx, r); err == nil {
		t.Fatalf("first call should fail and open circuit")
	}

	time.Sleep(40 * time.Millisecond)

	// trial call after cooldown succeeds and closes the circuit
	inner.err = nil

	if err := n.AnnounceResult(ctx, r); err != nil {
		t.Fatalf("half-open trial should pass through, got %v", err)
	}

	if err := n.AnnounceResult(ctx, r); err != nil {
		t.Fatalf("circuit should be closed again, got %v", err)
	}
}
