// Package broker defines the capability surface a snapshot fetch needs from
// a Kafka-like partitioned broker: subscription, partition assignment,
// offset lookup, and one ordered record stream per partition. Concrete
// drivers live in subpackages and register themselves by name.
package broker

import "context"

// TopicPartition identifies one partition of a topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// Record is a single raw record as read off a partition.
type Record struct {
	TopicPartition
	Offset int64
	Key    []byte
	Value  []byte
}

// PartitionStream is one partition's live record stream, in offset order.
// Records and Errors are closed by Close; Close is idempotent.
type PartitionStream interface {
	Records() <-chan Record
	Errors() <-chan error
	Close() error
}

// Config carries the connection settings a driver needs. Credential fields
// are plumbed through as-is; redaction happens in the configuration layer
// before anything is logged.
type Config struct {
	Brokers    []string
	GroupID    string
	Version    string
	TLSEnabled bool
	SASLUser   string
	SASLPass   string
}

// Client is the broker capability interface. A Client instance is owned by
// exactly one fetch; implementations need not be safe for concurrent
// Subscribe calls, but ConsumePartition streams may be consumed in parallel.
type Client interface {
	// Configure establishes the connection described by cfg.
	Configure(cfg Config) error

	// Subscribe connects to the topic and resolves the partition assignment.
	Subscribe(ctx context.Context, topic string) error

	// Assignment returns the partitions assigned by Subscribe.
	Assignment() ([]TopicPartition, error)

	// Offsets returns the oldest and newest (end) offset of the partition.
	// The newest offset is one past the last record currently present.
	Offsets(ctx context.Context, tp TopicPartition) (oldest, newest int64, err error)

	// ConsumePartition opens the partition's record stream starting at its
	// oldest available offset.
	ConsumePartition(ctx context.Context, tp TopicPartition) (PartitionStream, error)

	// Close tears down the subscription and all open streams. Idempotent.
	// No broker I/O happens after Close returns.
	Close() error
}
