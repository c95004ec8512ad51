package fluid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// captureNotifier records every event it receives.
type captureNotifier struct {
	id     string
	mu     sync.Mutex
	events []TickEvent
	fail   int // number of Notify calls to fail before succeeding
	closed bool
}

func (c *captureNotifier) ID() string   { return c.id }
func (c *captureNotifier) Type() string { return "capture" }

func (c *captureNotifier) Notify(_ context.Context, event TickEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail > 0 {
		c.fail--
		return errors.New("transient failure")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *captureNotifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureNotifier) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *captureNotifier) waitForEvents(t *testing.T, want int) []TickEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.events) >= want {
			events := append([]TickEvent(nil), c.events...)
			c.mu.Unlock()
			return events
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d events, got %d", want, c.eventCount())
	return nil
}

func TestNotificationManager_RegisterAndUnregister(t *testing.T) {
	nm := NewNotificationManager(NewNoOpLogger())
	defer nm.Close()

	n1 := &captureNotifier{id: "one"}
	if err := nm.RegisterNotifier(n1); err != nil {
		t.Fatalf("RegisterNotifier: %v", err)
	}
	if err := nm.RegisterNotifier(&captureNotifier{id: "one"}); err == nil {
		t.Error("Expected error registering duplicate ID")
	}
	if err := nm.RegisterNotifier(&captureNotifier{id: ""}); err == nil {
		t.Error("Expected error registering empty ID")
	}
	if err := nm.RegisterNotifier(nil); err == nil {
		t.Error("Expected error registering nil notifier")
	}

	if _, ok := nm.GetNotifier("one"); !ok {
		t.Error("Expected to find registered notifier")
	}
	if ids := nm.ListNotifiers(); len(ids) != 1 || ids[0] != "one" {
		t.Errorf("Expected [one], got %v", ids)
	}

	if err := nm.UnregisterNotifier("one"); err != nil {
		t.Fatalf("UnregisterNotifier: %v", err)
	}
	if !n1.closed {
		t.Error("Expected unregister to close the notifier")
	}
	if err := nm.UnregisterNotifier("one"); err == nil {
		t.Error("Expected error unregistering unknown ID")
	}
}

func TestNotificationManager_EnqueueDeliversToNamedNotifiers(t *testing.T) {
	nm := NewNotificationManager(NewNoOpLogger())
	defer nm.Close()

	target := &captureNotifier{id: "target"}
	other := &captureNotifier{id: "other"}
	if err := nm.RegisterNotifier(target); err != nil {
		t.Fatal(err)
	}
	if err := nm.RegisterNotifier(other); err != nil {
		t.Fatal(err)
	}

	nm.Enqueue(TickEvent{Network: "net", Tick: 7}, []string{"target"})

	events := target.waitForEvents(t, 1)
	if events[0].Tick != 7 || events[0].Network != "net" {
		t.Errorf("Expected tick 7 event for net, got %+v", events[0])
	}

	// Give the worker a moment; the unnamed notifier must stay silent
	time.Sleep(50 * time.Millisecond)
	if other.eventCount() != 0 {
		t.Errorf("Expected no delivery to unnamed notifier, got %d", other.eventCount())
	}
}

func TestNotificationManager_EmptyIDsBroadcastToAll(t *testing.T) {
	nm := NewNotificationManager(NewNoOpLogger())
	defer nm.Close()

	a := &captureNotifier{id: "a"}
	b := &captureNotifier{id: "b"}
	if err := nm.RegisterNotifier(a); err != nil {
		t.Fatal(err)
	}
	if err := nm.RegisterNotifier(b); err != nil {
		t.Fatal(err)
	}

	nm.Enqueue(TickEvent{Network: "net", Tick: 1}, nil)

	a.waitForEvents(t, 1)
	b.waitForEvents(t, 1)
}

func TestNotificationManager_RetriesTransientFailures(t *testing.T) {
	nm := NewNotificationManager(NewNoOpLogger())
	defer nm.Close()

	flaky := &captureNotifier{id: "flaky", fail: 2}
	if err := nm.RegisterNotifier(flaky); err != nil {
		t.Fatal(err)
	}

	nm.Enqueue(TickEvent{Network: "net", Tick: 1}, []string{"flaky"})

	events := flaky.waitForEvents(t, 1)
	if events[0].Tick != 1 {
		t.Errorf("Expected the event after retries, got %+v", events[0])
	}
}

func TestNotificationManager_CloseStopsDeliveryAndClosesNotifiers(t *testing.T) {
	nm := NewNotificationManager(NewNoOpLogger())

	n1 := &captureNotifier{id: "one"}
	if err := nm.RegisterNotifier(n1); err != nil {
		t.Fatal(err)
	}

	if err := nm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !n1.closed {
		t.Error("Expected Close to close registered notifiers")
	}

	// Enqueue after close is a no-op, not a panic
	nm.Enqueue(TickEvent{Network: "net", Tick: 1}, nil)

	// Close is idempotent
	if err := nm.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}

func TestNetwork_StepEmitsTickEvents(t *testing.T) {
	nm := NewNotificationManager(NewNoOpLogger())
	defer nm.Close()

	capture := &captureNotifier{id: "cap"}
	if err := nm.RegisterNotifier(capture); err != nil {
		t.Fatal(err)
	}

	n, _, _, _ := twoTankNetwork(t)
	n.SetNotificationManager(nm)

	n.Step()
	events := capture.waitForEvents(t, 1)

	ev := events[0]
	if ev.Network != "two-tanks" || ev.Tick != 1 {
		t.Errorf("Expected two-tanks tick 1, got %+v", ev)
	}
	if len(ev.Containers) != 2 {
		t.Fatalf("Expected 2 container statuses, got %d", len(ev.Containers))
	}
	if len(ev.Transfers) != 1 {
		t.Fatalf("Expected 1 transfer record, got %d", len(ev.Transfers))
	}
	tr := ev.Transfers[0]
	if tr.Pipe != "a~b" || tr.Type != "water" {
		t.Errorf("Expected a~b water transfer, got %+v", tr)
	}
	if tr.Mass <= 0 {
		t.Errorf("Expected positive alpha-to-beta mass, got %g", tr.Mass)
	}
	if ev.Timestamp == 0 {
		t.Error("Expected a timestamp on the event")
	}
}

func TestTickEvent_JSON(t *testing.T) {
	ev := TickEvent{Network: "net", Tick: 3, Timestamp: 1700000000}
	data, err := ev.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Expected non-empty JSON")
	}
}
