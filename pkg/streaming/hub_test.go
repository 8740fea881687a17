package streaming

import (
	"context"
	"testing"
	"time"
)

func TestNewClientSubscribesToEverything(t *testing.T) {
	c := newClient(NewHub(), nil)
	for _, et := range allEventTypes {
		if !c.isSubscribed(et) {
			t.Errorf("new client should be subscribed to %s", et)
		}
	}
}

func TestHandleMessageSubscriptionFilters(t *testing.T) {
	c := newClient(NewHub(), nil)

	c.handleMessage([]byte(`{"type":"unsubscribe","events":["heartbeat","parlay"]}`))
	if c.isSubscribed(EventTypeHeartbeat) || c.isSubscribed(EventTypeParlay) {
		t.Error("unsubscribed event types should be filtered")
	}
	if !c.isSubscribed(EventTypeSettlement) {
		t.Error("other subscriptions should survive an unsubscribe")
	}

	c.handleMessage([]byte(`{"type":"subscribe","events":["parlay"]}`))
	if !c.isSubscribed(EventTypeParlay) {
		t.Error("resubscribe should restore the event type")
	}

	// Garbage input is ignored.
	c.handleMessage([]byte(`not json`))
	if !c.isSubscribed(EventTypeSettlement) {
		t.Error("malformed message should not change subscriptions")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := newClient(h, nil)
	h.register <- c

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel, got a message")
		}
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed on shutdown")
	}
}

func TestBroadcastStampsTimestamp(t *testing.T) {
	h := NewHub()
	h.Broadcast(Event{Type: EventTypeStatus, Data: "ok"})

	select {
	case ev := <-h.broadcast:
		if ev.Timestamp.IsZero() {
			t.Error("broadcast should stamp a zero timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("event never reached the broadcast channel")
	}
}
