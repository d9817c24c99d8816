package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"ksnap/broker"
	"ksnap/internal/logging"

	skafka "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// readerMaxBytes bounds a single fetch response per partition reader.
const readerMaxBytes = 10e6

// KafkaGoDriver implements broker.Client with segmentio/kafka-go: an admin
// client for metadata and offset listing plus one partition-pinned Reader
// per consumed partition.
type KafkaGoDriver struct {
	cfg    broker.Config
	dialer *skafka.Dialer
	admin  *skafka.Client
	topic  string

	mu      sync.Mutex
	parts   []int32
	streams []*kafkaGoStream
	closed  bool
}

func (d *KafkaGoDriver) Configure(cfg broker.Config) error {
	d.cfg = cfg

	dialer := &skafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if cfg.TLSEnabled {
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.SASLUser != "" {
		dialer.SASLMechanism = plain.Mechanism{
			Username: cfg.SASLUser,
			Password: cfg.SASLPass,
		}
	}
	d.dialer = dialer
	d.admin = &skafka.Client{
		Addr: skafka.TCP(cfg.Brokers...),
		Transport: &skafka.Transport{
			SASL: dialer.SASLMechanism,
			TLS:  dialer.TLS,
		},
	}
	return nil
}

func (d *KafkaGoDriver) Subscribe(ctx context.Context, topic string) error {
	resp, err := d.admin.Metadata(ctx, &skafka.MetadataRequest{Topics: []string{topic}})
	if err != nil {
		return &broker.Error{Op: "subscribe", Err: err}
	}
	var parts []int32
	for _, t := range resp.Topics {
		if t.Name != topic {
			continue
		}
		if t.Error != nil {
			return &broker.Error{Op: "assignment", Err: t.Error}
		}
		for _, p := range t.Partitions {
			parts = append(parts, int32(p.ID))
		}
	}
	if len(parts) == 0 {
		return &broker.Error{Op: "assignment", Err: fmt.Errorf("topic %q has no partitions", topic)}
	}
	d.topic = topic
	d.mu.Lock()
	d.parts = parts
	d.mu.Unlock()
	logging.L().Debug("kafka-go-driver: subscribed", "topic", topic, "partitions", len(parts))
	return nil
}

func (d *KafkaGoDriver) Assignment() ([]broker.TopicPartition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.topic == "" {
		return nil, &broker.Error{Op: "assignment", Err: fmt.Errorf("not subscribed")}
	}
	tps := make([]broker.TopicPartition, 0, len(d.parts))
	for _, p := range d.parts {
		tps = append(tps, broker.TopicPartition{Topic: d.topic, Partition: p})
	}
	return tps, nil
}

func (d *KafkaGoDriver) Offsets(ctx context.Context, tp broker.TopicPartition) (int64, int64, error) {
	resp, err := d.admin.ListOffsets(ctx, &skafka.ListOffsetsRequest{
		Topics: map[string][]skafka.OffsetRequest{
			tp.Topic: {
				{Partition: int(tp.Partition), Timestamp: skafka.FirstOffset},
				{Partition: int(tp.Partition), Timestamp: skafka.LastOffset},
			},
		},
	})
	if err != nil {
		return 0, 0, &broker.Error{Op: "offsets", Err: err}
	}
	for _, po := range resp.Topics[tp.Topic] {
		if int32(po.Partition) != tp.Partition {
			continue
		}
		if po.Error != nil {
			return 0, 0, &broker.Error{Op: "offsets", Err: po.Error}
		}
		return po.FirstOffset, po.LastOffset, nil
	}
	return 0, 0, &broker.Error{Op: "offsets", Err: fmt.Errorf("no offsets for %s[%d]", tp.Topic, tp.Partition)}
}

func (d *KafkaGoDriver) ConsumePartition(ctx context.Context, tp broker.TopicPartition) (broker.PartitionStream, error) {
	r := skafka.NewReader(skafka.ReaderConfig{
		Brokers:   d.cfg.Brokers,
		Topic:     tp.Topic,
		Partition: int(tp.Partition),
		Dialer:    d.dialer,
		MaxBytes:  readerMaxBytes,
	})
	if err := r.SetOffset(skafka.FirstOffset); err != nil {
		_ = r.Close()
		return nil, &broker.Error{Op: "consume", Err: err}
	}
	s := newKafkaGoStream(ctx, r)
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

func (d *KafkaGoDriver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	streams := d.streams
	d.streams = nil
	d.mu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
	d.admin = nil
	d.dialer = nil
	return nil
}

// kafkaGoStream pumps one partition-pinned Reader into channels.
type kafkaGoStream struct {
	r       *skafka.Reader
	records chan broker.Record
	errs    chan error
	cancel  context.CancelFunc
	once    sync.Once
}

func newKafkaGoStream(ctx context.Context, r *skafka.Reader) *kafkaGoStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &kafkaGoStream{
		r:       r,
		records: make(chan broker.Record),
		errs:    make(chan error, 1),
		cancel:  cancel,
	}
	go s.fetch(ctx)
	return s
}

func (s *kafkaGoStream) fetch(ctx context.Context) {
	defer close(s.records)
	for {
		msg, err := s.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				select {
				case s.errs <- err:
				default:
				}
			}
			return
		}
		rec := broker.Record{
			TopicPartition: broker.TopicPartition{Topic: msg.Topic, Partition: int32(msg.Partition)},
			Offset:         msg.Offset,
			Key:            msg.Key,
			Value:          msg.Value,
		}
		select {
		case s.records <- rec:
		case <-ctx.Done():
			return
		}
	}
}

func (s *kafkaGoStream) Records() <-chan broker.Record { return s.records }
func (s *kafkaGoStream) Errors() <-chan error          { return s.errs }

func (s *kafkaGoStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.r.Close()
	})
	return err
}
