// Package snapshot implements bounded, point-in-time consumption of a
// partitioned topic: each partition's end offset is frozen once, every
// partition is consumed concurrently up to that bound, and the decoded
// results are fanned into one finite stream.
package snapshot

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ksnap/broker"
	"ksnap/decode"
	"ksnap/internal/logging"
	"ksnap/internal/telemetry"
)

// Consumer orchestrates one or more bounded fetches against a configured
// broker client. Each Fetch owns the client exclusively for its duration;
// the client is closed when the returned stream finishes or is released.
type Consumer struct {
	client broker.Client
	dec    decode.Decoder
}

func New(client broker.Client, dec decode.Decoder) *Consumer {
	return &Consumer{client: client, dec: dec}
}

// Fetch subscribes to the topic, snapshots every assigned partition's end
// offset, and returns a stream of everything present at that instant.
// Records written after the snapshot are never observed, even if they
// arrive before a partition reaches its bound.
func (c *Consumer) Fetch(ctx context.Context, topic string) (*Stream, error) {
	telemetry.Fetches.Inc()

	if err := c.client.Subscribe(ctx, topic); err != nil {
		telemetry.FetchErrors.Inc()
		_ = c.client.Close()
		return nil, err
	}
	offs, err := Take(ctx, c.client)
	if err != nil {
		telemetry.FetchErrors.Inc()
		_ = c.client.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		chunks:   make(chan []byte),
		finished: make(chan struct{}),
		cancel:   cancel,
	}

	// One task per assigned partition, no cap: partition count bounds
	// concurrent resource usage for the duration of the fetch.
	g, gctx := errgroup.WithContext(ctx)
	started := 0
	for _, tp := range offs.Partitions() {
		if offs.Empty(tp) {
			continue
		}
		end := offs.End(tp)
		g.Go(func() error {
			return c.consumePartition(gctx, tp, end, s.chunks)
		})
		started++
	}
	telemetry.PartitionsInflight.Add(float64(started))
	logging.L().Debug("snapshot: fetch started",
		"topic", topic, "partitions", len(offs.Partitions()), "active", started)

	go func() {
		s.err = g.Wait()
		telemetry.PartitionsInflight.Sub(float64(started))
		if s.err != nil {
			telemetry.FetchErrors.Inc()
		}
		_ = c.client.Close()
		close(s.chunks)
		close(s.finished)
	}()
	return s, nil
}

// consumePartition forwards one partition's records through the decoder
// until the record that reaches the frozen bound has been emitted. The
// bound is inclusive of the last record present at snapshot time: the task
// stops after the first record whose offset is at or past end-1.
func (c *Consumer) consumePartition(ctx context.Context, tp broker.TopicPartition, end int64, out chan<- []byte) error {
	ps, err := c.client.ConsumePartition(ctx, tp)
	if err != nil {
		return err
	}
	defer ps.Close()

	limit := end - 1
	for {
		select {
		case rec, ok := <-ps.Records():
			if !ok {
				return nil
			}
			chunks, err := c.dec.Decode(rec)
			if err != nil {
				return err
			}
			telemetry.RecordsConsumed.Inc()
			for _, chunk := range chunks {
				select {
				case out <- chunk:
					telemetry.BytesEmitted.Add(float64(len(chunk)))
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if rec.Offset >= limit {
				return nil
			}
		case err := <-ps.Errors():
			return &broker.Error{Op: "consume", Err: err}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
