package events

// Kind of a record mutation
type Kind string

const (
	KindCreated   Kind = "created"
	KindEdited    Kind = "edited"
	KindPublished Kind = "published"
	KindDeleted   Kind = "deleted"
)

// Event describes one committed record mutation. Emitted after cache
// invalidation, so a consumer that re-reads on receipt observes
// post-mutation state.
type Event struct {
	Kind       Kind   `msgpack:"kind"`
	RecordID   string `msgpack:"id"`
	OwnerID    string `msgpack:"owner"`
	Slug       string `msgpack:"slug"`
	Version    int64  `msgpack:"ver"`
	At         int64  `msgpack:"ts"`   // Commit time (unix ms)
	InstanceID uint64 `msgpack:"inst"` // Originating instance
}

// Sink represents a destination for mutation events (e.g., Kafka, NATS)
type Sink interface {
	// Publish sends an event to the sink
	Publish(topic string, key string, value []byte) error
	// Close releases any resources held by the sink
	Close() error
}

// Filter determines whether an event should be published
type Filter interface {
	// Match returns true if the event should be published
	Match(kind Kind) bool
}
