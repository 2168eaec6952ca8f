package workers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeWorker struct {
	name string
	err  error
}

func (f *fakeWorker) Name() string { return f.name }

func (f *fakeWorker) Start(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestGroupStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := Group{&fakeWorker{name: "a"}, &fakeWorker{name: "b"}}

	done := make(chan error, 1)
	go func() { done <- g.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("group did not stop after cancel")
	}
}

func TestGroupCollectsWorkerErrors(t *testing.T) {
	boom := errors.New("boom")
	g := Group{&fakeWorker{name: "healthy"}, &fakeWorker{name: "broken", err: boom}}

	err := g.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom in %v", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error should name the failing worker: %v", err)
	}
}
