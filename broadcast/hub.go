// Package broadcast owns the subscription relation between live viewers and
// reports, and fans committed state changes out to them. One Hub instance is
// created in main and handed to whatever transport needs it; there is no
// process-wide registry.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "broadcast")

// DefaultQueueSize bounds each subscriber's outbound queue. A subscriber
// that falls this far behind starts losing its oldest events and must
// refetch on the next gap it notices.
const DefaultQueueSize = 32

// Subscription is one live viewer connection. Read delivered events from
// Events(); the channel is closed on Unsubscribe.
type Subscription struct {
	id        string
	events    chan StatusEvent
	reports   map[string]struct{}
	aggregate bool
	closed    bool
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string { return s.id }

// Events is the subscriber's bounded delivery channel.
func (s *Subscription) Events() <-chan StatusEvent { return s.events }

// Hub maintains subscriptions and delivers StatusEvents. Its lock is its
// own: publishing is never blocked behind a report mutation, because Publish
// is only called after the commit is durable.
type Hub struct {
	mu        sync.Mutex
	byReport  map[string]map[*Subscription]struct{}
	aggregate map[*Subscription]struct{}
	seq       map[string]uint64
	queueSize int
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		byReport:  make(map[string]map[*Subscription]struct{}),
		aggregate: make(map[*Subscription]struct{}),
		seq:       make(map[string]uint64),
		queueSize: queueSize,
	}
}

// Subscribe registers a new viewer for the given reports. More reports can
// be added later with AddReports.
func (h *Hub) Subscribe(reportIDs ...string) *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		events:  make(chan StatusEvent, h.queueSize),
		reports: make(map[string]struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.attach(sub, reportIDs)
	return sub
}

// SubscribeAggregate registers a dashboard viewer that receives every event
// regardless of report.
func (h *Hub) SubscribeAggregate() *Subscription {
	sub := &Subscription{
		id:        uuid.NewString(),
		events:    make(chan StatusEvent, h.queueSize),
		reports:   make(map[string]struct{}),
		aggregate: true,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.aggregate[sub] = struct{}{}
	return sub
}

// AddReports widens an existing subscription to more reports.
func (h *Hub) AddReports(sub *Subscription, reportIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	h.attach(sub, reportIDs)
}

// RemoveReports narrows an existing subscription.
func (h *Hub) RemoveReports(sub *Subscription, reportIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range reportIDs {
		delete(sub.reports, id)
		if set, ok := h.byReport[id]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.byReport, id)
			}
		}
	}
}

// Unsubscribe removes the viewer everywhere and closes its event channel.
// Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true

	for id := range sub.reports {
		if set, ok := h.byReport[id]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.byReport, id)
			}
		}
	}
	delete(h.aggregate, sub)
	close(sub.events)
}

// Publish stamps the event with the report's next sequence number and
// delivers it to every subscriber of that report plus all aggregate
// subscribers. It never blocks: a full subscriber queue drops its oldest
// event to make room.
func (h *Hub) Publish(event StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq[event.ReportID]++
	event.Sequence = h.seq[event.ReportID]

	for sub := range h.byReport[event.ReportID] {
		h.enqueue(sub, event)
	}
	for sub := range h.aggregate {
		h.enqueue(sub, event)
	}
}

// SubscriberCount reports how many viewers are watching a report.
func (h *Hub) SubscriberCount(reportID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byReport[reportID])
}

func (h *Hub) attach(sub *Subscription, reportIDs []string) {
	for _, id := range reportIDs {
		sub.reports[id] = struct{}{}
		if h.byReport[id] == nil {
			h.byReport[id] = make(map[*Subscription]struct{})
		}
		h.byReport[id][sub] = struct{}{}
	}
}

func (h *Hub) enqueue(sub *Subscription, event StatusEvent) {
	for {
		select {
		case sub.events <- event:
			return
		default:
		}
		// Queue full: drop the oldest event for this subscriber. The
		// client treats the sequence gap as a cue to refetch.
		select {
		case dropped := <-sub.events:
			log.WithFields(logrus.Fields{
				"subscriber": sub.id,
				"report_id":  dropped.ReportID,
				"sequence":   dropped.Sequence,
			}).Warn("slow subscriber, dropping oldest event")
		default:
		}
	}
}
