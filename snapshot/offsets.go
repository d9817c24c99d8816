package snapshot

import (
	"context"

	"ksnap/broker"
)

// Offsets is the frozen offset picture of one fetch: for every assigned
// partition, the oldest available offset and the end offset (one past the
// last record present) at the instant the snapshot was taken. It is built
// exactly once per fetch and never mutated afterwards.
type Offsets struct {
	parts []broker.TopicPartition
	start map[broker.TopicPartition]int64
	end   map[broker.TopicPartition]int64
}

// Take reads the client's partition assignment and freezes each
// partition's offsets. Any assignment or lookup failure is fatal to the
// fetch; nothing is retried here.
func Take(ctx context.Context, cl broker.Client) (*Offsets, error) {
	parts, err := cl.Assignment()
	if err != nil {
		return nil, err
	}
	o := &Offsets{
		parts: parts,
		start: make(map[broker.TopicPartition]int64, len(parts)),
		end:   make(map[broker.TopicPartition]int64, len(parts)),
	}
	for _, tp := range parts {
		oldest, newest, err := cl.Offsets(ctx, tp)
		if err != nil {
			return nil, err
		}
		o.start[tp] = oldest
		o.end[tp] = newest
	}
	return o, nil
}

// Partitions returns the assignment the snapshot covers.
func (o *Offsets) Partitions() []broker.TopicPartition { return o.parts }

// End returns the partition's frozen end offset.
func (o *Offsets) End(tp broker.TopicPartition) int64 { return o.end[tp] }

// Empty reports whether the partition held no records at snapshot time.
func (o *Offsets) Empty(tp broker.TopicPartition) bool {
	return o.end[tp] <= o.start[tp]
}
