package kafka

import (
	"context"
	"sync"

	"ksnap/broker"
	"ksnap/internal/logging"

	"github.com/IBM/sarama"
)

// SaramaDriver implements broker.Client on top of the IBM/sarama client.
// Partition "assignment" is the full partition list of the subscribed
// topic; the consumer-group rebalance protocol is out of scope for a
// point-in-time snapshot.
type SaramaDriver struct {
	cfg   broker.Config
	cl    sarama.Client
	cons  sarama.Consumer
	topic string

	mu      sync.Mutex
	parts   []int32
	streams []*saramaStream
	closed  bool
}

func (d *SaramaDriver) Configure(cfg broker.Config) error {
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Consumer.Return.Errors = true
	if cfg.GroupID != "" {
		sc.ClientID = cfg.GroupID
	}
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	}
	if cfg.TLSEnabled {
		sc.Net.TLS.Enable = true
	}
	if cfg.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = cfg.SASLUser, cfg.SASLPass
	}

	cl, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return &broker.Error{Op: "subscribe", Err: err}
	}
	d.cl = cl
	return nil
}

func (d *SaramaDriver) Subscribe(ctx context.Context, topic string) error {
	cons, err := sarama.NewConsumerFromClient(d.cl)
	if err != nil {
		return &broker.Error{Op: "subscribe", Err: err}
	}
	parts, err := cons.Partitions(topic)
	if err != nil {
		_ = cons.Close()
		return &broker.Error{Op: "assignment", Err: err}
	}
	d.cons, d.topic = cons, topic
	d.mu.Lock()
	d.parts = parts
	d.mu.Unlock()
	logging.L().Debug("sarama-driver: subscribed", "topic", topic, "partitions", len(parts))
	return nil
}

func (d *SaramaDriver) Assignment() ([]broker.TopicPartition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cons == nil {
		return nil, &broker.Error{Op: "assignment", Err: sarama.ErrClosedClient}
	}
	tps := make([]broker.TopicPartition, 0, len(d.parts))
	for _, p := range d.parts {
		tps = append(tps, broker.TopicPartition{Topic: d.topic, Partition: p})
	}
	return tps, nil
}

func (d *SaramaDriver) Offsets(_ context.Context, tp broker.TopicPartition) (int64, int64, error) {
	oldest, err := d.cl.GetOffset(tp.Topic, tp.Partition, sarama.OffsetOldest)
	if err != nil {
		return 0, 0, &broker.Error{Op: "offsets", Err: err}
	}
	newest, err := d.cl.GetOffset(tp.Topic, tp.Partition, sarama.OffsetNewest)
	if err != nil {
		return 0, 0, &broker.Error{Op: "offsets", Err: err}
	}
	return oldest, newest, nil
}

func (d *SaramaDriver) ConsumePartition(_ context.Context, tp broker.TopicPartition) (broker.PartitionStream, error) {
	pc, err := d.cons.ConsumePartition(tp.Topic, tp.Partition, sarama.OffsetOldest)
	if err != nil {
		return nil, &broker.Error{Op: "consume", Err: err}
	}
	s := newSaramaStream(pc)
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

func (d *SaramaDriver) Close() error {
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
	if d.cons != nil {
		_ = d.cons.Close()
	}
	if d.cl != nil {
		_ = d.cl.Close()
	}
	return nil
}

// saramaStream adapts a sarama.PartitionConsumer to broker.PartitionStream.
type saramaStream struct {
	pc      sarama.PartitionConsumer
	records chan broker.Record
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

func newSaramaStream(pc sarama.PartitionConsumer) *saramaStream {
	s := &saramaStream{
		pc:      pc,
		records: make(chan broker.Record),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *saramaStream) forward() {
	defer close(s.records)
	for {
		select {
		case msg, ok := <-s.pc.Messages():
			if !ok {
				return
			}
			rec := broker.Record{
				TopicPartition: broker.TopicPartition{Topic: msg.Topic, Partition: msg.Partition},
				Offset:         msg.Offset,
				Key:            msg.Key,
				Value:          msg.Value,
			}
			select {
			case s.records <- rec:
			case <-s.done:
				return
			}
		case cerr, ok := <-s.pc.Errors():
			if !ok {
				return
			}
			select {
			case s.errs <- cerr.Err:
			default:
			}
			return
		case <-s.done:
			return
		}
	}
}

func (s *saramaStream) Records() <-chan broker.Record { return s.records }
func (s *saramaStream) Errors() <-chan error          { return s.errs }

func (s *saramaStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.pc.AsyncClose()
	})
	return nil
}
