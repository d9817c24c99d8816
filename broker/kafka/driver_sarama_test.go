package kafka

import (
	"errors"
	"testing"
	"time"

	"ksnap/broker"

	"github.com/IBM/sarama"
)

// fakePC is a minimal sarama.PartitionConsumer for exercising the channel
// bridge without a broker.
type fakePC struct {
	msgs chan *sarama.ConsumerMessage
	errs chan *sarama.ConsumerError
}

func newFakePC() *fakePC {
	return &fakePC{
		msgs: make(chan *sarama.ConsumerMessage, 16),
		errs: make(chan *sarama.ConsumerError, 1),
	}
}

func (f *fakePC) AsyncClose() {}
func (f *fakePC) Close() error { return nil }
func (f *fakePC) Messages() <-chan *sarama.ConsumerMessage { return f.msgs }
func (f *fakePC) Errors() <-chan *sarama.ConsumerError { return f.errs }
func (f *fakePC) HighWaterMarkOffset() int64 { return 0 }
func (f *fakePC) Pause() {}
func (f *fakePC) Resume() {}
func (f *fakePC) IsPaused() bool { return false }

func TestSaramaStreamForwardsRecords(t *testing.T) {
	pc := newFakePC()
	pc.msgs <- &sarama.ConsumerMessage{
		Topic: "t", Partition: 2, Offset: 9,
		Key: []byte("k"), Value: []byte("v"),
	}
	close(pc.msgs)

	s := newSaramaStream(pc)
	defer s.Close()

	select {
	case rec := <-s.Records():
		want := broker.Record{
			TopicPartition: broker.TopicPartition{Topic: "t", Partition: 2},
			Offset:         9,
			Key:            []byte("k"),
			Value:          []byte("v"),
		}
		if rec.Topic != want.Topic || rec.Partition != want.Partition ||
			rec.Offset != want.Offset || string(rec.Key) != "k" || string(rec.Value) != "v" {
			t.Fatalf("record = %+v, want %+v", rec, want)
		}
	case <-time.After(time.Second):
		t.Fatal("record not forwarded")
	}

	select {
	case _, ok := <-s.Records():
		if ok {
			t.Fatal("expected records channel to close")
		}
	case <-time.After(time.Second):
		t.Fatal("records channel did not close")
	}
}

func TestSaramaStreamForwardsErrors(t *testing.T) {
	pc := newFakePC()
	cause := errors.New("offset out of range")
	pc.errs <- &sarama.ConsumerError{Topic: "t", Partition: 2, Err: cause}

	s := newSaramaStream(pc)
	defer s.Close()

	select {
	case err := <-s.Errors():
		if !errors.Is(err, cause) {
			t.Fatalf("error = %v, want %v", err, cause)
		}
	case <-time.After(time.Second):
		t.Fatal("error not forwarded")
	}
}

func TestSaramaStreamCloseIsIdempotent(t *testing.T) {
	pc := newFakePC()
	s := newSaramaStream(pc)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
