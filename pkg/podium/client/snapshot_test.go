package client

import (
	"context"
	"errors"
	"testing"
)

func TestSnapshotRefresh(t *testing.T) {
	var s Snapshot[[]string]
	if _, ok := s.Get(); ok {
		t.Fatal("Expected empty snapshot")
	}

	got, err := s.Refresh(context.Background(), func(context.Context) ([]string, error) {
		return []string{"Best Cook"}, nil
	})
	if err != nil || len(got) != 1 {
		t.Fatalf("Refresh: %v, %v", got, err)
	}

	// A failed refresh keeps the previous value
	boom := errors.New("boom")
	if _, err := s.Refresh(context.Background(), func(context.Context) ([]string, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
	if v, ok := s.Get(); !ok || len(v) != 1 {
		t.Errorf("Expected previous value to be kept, got %v", v)
	}
}

func TestSnapshotDropsSupersededResult(t *testing.T) {
	var s Snapshot[int]
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := s.Refresh(context.Background(), func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		done <- err
	}()

	// Wait for the slow refresh to start before the newer one
	for {
		s.mu.Lock()
		started := s.gen == 1
		s.mu.Unlock()
		if started {
			break
		}
	}

	if _, err := s.Refresh(context.Background(), func(context.Context) (int, error) {
		return 2, nil
	}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("Expected ErrSuperseded, got %v", err)
	}
	if v, _ := s.Get(); v != 2 {
		t.Errorf("Expected newer value 2, got %d", v)
	}
}

func TestSnapshotDropsCancelledResult(t *testing.T) {
	var s Snapshot[int]
	s.Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Refresh(ctx, func(context.Context) (int, error) {
		cancel()
		return 2, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if v, _ := s.Get(); v != 1 {
		t.Errorf("Expected value to stay 1, got %d", v)
	}

	s.Clear()
	if _, ok := s.Get(); ok {
		t.Error("Expected snapshot to be cleared")
	}
}
