package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, sub *Subscription, n int) []StatusEvent {
	t.Helper()
	events := make([]StatusEvent, 0, n)
	for len(events) < n {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "channel closed early")
			events = append(events, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", len(events)+1, n)
		}
	}
	return events
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDeliversOnlyToSubscribedReport(t *testing.T) {
	hub := NewHub(0)
	subX := hub.Subscribe("report-x")
	subY := hub.Subscribe("report-y")

	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})

	events := collect(t, subX, 1)
	assert.Equal(t, "report-x", events[0].ReportID)
	assertNoEvent(t, subY)
}

func TestPublishPreservesCommitOrderAndSequence(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe("report-x")

	hub.Publish(NewStatusUpdateEvent("report-x", "reported", "acknowledged", "admin", ""))
	hub.Publish(NewStatusUpdateEvent("report-x", "acknowledged", "in_progress", "admin", ""))
	hub.Publish(NewUpvoteUpdateEvent("report-x", 3, "user", "added"))

	events := collect(t, sub, 3)
	assert.Equal(t, uint64(1), events[0].Sequence)
	assert.Equal(t, uint64(2), events[1].Sequence)
	assert.Equal(t, uint64(3), events[2].Sequence)
	assert.Equal(t, StatusUpdate, events[0].Type)
	assert.Equal(t, UpvoteUpdate, events[2].Type)
}

func TestSequenceIsPerReport(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe("report-x", "report-y")

	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-y"})

	events := collect(t, sub, 3)
	byReport := map[string][]uint64{}
	for _, ev := range events {
		byReport[ev.ReportID] = append(byReport[ev.ReportID], ev.Sequence)
	}
	assert.Equal(t, []uint64{1, 2}, byReport["report-x"])
	assert.Equal(t, []uint64{1}, byReport["report-y"])
}

func TestEventsBeforeSubscriptionAreNotDelivered(t *testing.T) {
	hub := NewHub(0)
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})

	sub := hub.Subscribe("report-x")
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})

	events := collect(t, sub, 1)
	// Sequence keeps counting from the report's history.
	assert.Equal(t, uint64(2), events[0].Sequence)
	assertNoEvent(t, sub)
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe("report-x")

	hub.Unsubscribe(sub)
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.SubscriberCount("report-x"))

	// Idempotent.
	hub.Unsubscribe(sub)
}

func TestAddAndRemoveReports(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe()

	hub.AddReports(sub, "report-x")
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	collect(t, sub, 1)

	hub.RemoveReports(sub, "report-x")
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	assertNoEvent(t, sub)
}

func TestAggregateSubscriberReceivesEverything(t *testing.T) {
	hub := NewHub(0)
	dashboard := hub.SubscribeAggregate()

	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	hub.Publish(StatusEvent{Type: UpvoteUpdate, ReportID: "report-y"})

	events := collect(t, dashboard, 2)
	assert.Equal(t, "report-x", events[0].ReportID)
	assert.Equal(t, "report-y", events[1].ReportID)
}

func TestSlowSubscriberDropsOldestNotNewest(t *testing.T) {
	hub := NewHub(2)
	sub := hub.Subscribe("report-x")

	// Nobody draining: third publish must evict the first event.
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
	hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})

	events := collect(t, sub, 2)
	assert.Equal(t, uint64(2), events[0].Sequence)
	assert.Equal(t, uint64(3), events[1].Sequence)
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	_ = hub.Subscribe("report-x")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(StatusEvent{Type: StatusUpdate, ReportID: "report-x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a subscriber that never drains")
	}
}
