package metastore

import (
	"sync"
	"time"

	"github.com/meridiandb/meridian/internal/metadata"
)

// SchemaUpdateType represents the type of schema event.
type SchemaUpdateType int

const (
	SchemaUpdated SchemaUpdateType = iota
	SchemaDropped
)

// SchemaUpdate is one schema change event.
type SchemaUpdate struct {
	Type     SchemaUpdateType
	Relation metadata.RelationName
	Version  int
}

// Notifier is an in-process pub/sub bus for schema change events, used
// by query nodes to invalidate cached table snapshots.
type Notifier struct {
	subscribers sync.Map
	bufferSize  int
}

// NewNotifier creates a new notifier instance.
func NewNotifier(bufferSize int) *Notifier {
	return &Notifier{bufferSize: bufferSize}
}

// Publish sends an event to all matching subscribers. Non-blocking: if
// a subscriber's channel is full the event is dropped.
func (n *Notifier) Publish(update SchemaUpdate) {
	n.subscribers.Range(func(key, value interface{}) bool {
		sub := value.(*Subscriber)
		if n.matchesFilter(sub, update.Relation.Schema) {
			select {
			case sub.Ch <- update:
			default:
				// Channel full - drop event, do NOT block
			}
		}
		return true
	})
}

// Subscribe adds a new subscriber with a custom ID. Filters are schema
// name prefixes; an empty list matches everything.
func (n *Notifier) Subscribe(id string, filters []string) *Subscriber {
	sub := &Subscriber{
		ID:      id,
		Filters: filters,
		Ch:      make(chan SchemaUpdate, n.bufferSize),
	}
	n.subscribers.Store(sub.ID, sub)
	return sub
}

// SubscribeAutoID adds a new subscriber with an auto-generated ID.
func (n *Notifier) SubscribeAutoID(filters ...string) chan SchemaUpdate {
	sub := n.Subscribe(generateSubscriberID(), filters)
	return sub.Ch
}

// Unsubscribe removes a subscriber and closes their channel.
func (n *Notifier) Unsubscribe(subID string) {
	if value, ok := n.subscribers.LoadAndDelete(subID); ok {
		sub := value.(*Subscriber)
		close(sub.Ch)
	}
}

func (n *Notifier) matchesFilter(sub *Subscriber, schemaName string) bool {
	if len(sub.Filters) == 0 {
		return true
	}
	for _, filter := range sub.Filters {
		if len(filter) == 0 {
			return true
		}
		if len(schemaName) >= len(filter) && schemaName[:len(filter)] == filter {
			return true
		}
	}
	return false
}

// Subscriber represents a schema event subscriber.
type Subscriber struct {
	ID      string
	Filters []string
	Ch      chan SchemaUpdate
}

func generateSubscriberID() string {
	return "sub_" + time.Now().Format("20060102150405000000")
}
