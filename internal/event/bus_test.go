package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []string
	bus.Subscribe(TopicAlertRaised, func(_ context.Context, ev Event) {
		got = append(got, "first:"+ev.Source)
	})
	bus.Subscribe(TopicAlertRaised, func(_ context.Context, ev Event) {
		got = append(got, "second:"+ev.Source)
	})
	bus.Subscribe(TopicReportCompleted, func(_ context.Context, _ Event) {
		got = append(got, "wrong topic")
	})

	bus.Publish(context.Background(), Event{
		Topic:     TopicAlertRaised,
		Source:    "engine",
		Timestamp: time.Now(),
	})

	if len(got) != 2 {
		t.Fatalf("handlers invoked = %d, want 2", len(got))
	}
	if got[0] != "first:engine" || got[1] != "second:engine" {
		t.Errorf("got = %v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var calls int
	unsub := bus.Subscribe(TopicReportCompleted, func(_ context.Context, _ Event) {
		calls++
	})

	bus.Publish(context.Background(), Event{Topic: TopicReportCompleted})
	unsub()
	bus.Publish(context.Background(), Event{Topic: TopicReportCompleted})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var reached bool
	bus.Subscribe(TopicAlertRaised, func(_ context.Context, _ Event) {
		panic("bad subscriber")
	})
	bus.Subscribe(TopicAlertRaised, func(_ context.Context, _ Event) {
		reached = true
	})

	bus.Publish(context.Background(), Event{Topic: TopicAlertRaised})

	if !reached {
		t.Error("second handler not reached after first panicked")
	}
}

func TestBus_PublishAsync(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		bus.Subscribe(TopicReportCompleted, func(_ context.Context, _ Event) {
			wg.Done()
		})
	}

	bus.PublishAsync(context.Background(), Event{Topic: TopicReportCompleted})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not run")
	}
}
