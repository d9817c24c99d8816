package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"ksnap/broker"
	"ksnap/decode"
)

// fakePartition holds the records visible at snapshot time and the records
// "appended" afterwards: offset lookups only see the former, the partition
// stream serves both.
type fakePartition struct {
	start       int64
	present     []broker.Record
	late        []broker.Record
	endOverride int64 // when > 0, reported instead of start+len(present)
}

// fakeStream behaves like a live partition stream: it serves its records
// in order and then blocks until closed, never closing Records on its own.
type fakeStream struct {
	ch   chan broker.Record
	errs chan error
	done chan struct{}
	once sync.Once
}

func newFakeStream(recs []broker.Record, streamErr error) *fakeStream {
	s := &fakeStream{
		ch:   make(chan broker.Record),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	go func() {
		for _, r := range recs {
			select {
			case s.ch <- r:
			case <-s.done:
				return
			}
		}
		if streamErr != nil {
			s.errs <- streamErr
		}
		<-s.done
	}()
	return s
}

func (s *fakeStream) Records() <-chan broker.Record { return s.ch }
func (s *fakeStream) Errors() <-chan error          { return s.errs }
func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type fakeClient struct {
	parts        map[int32]*fakePartition
	subscribeErr error
	offsetsErr   error
	streamErr    error

	mu      sync.Mutex
	topic   string
	closed  bool
	streams []*fakeStream
}

func (c *fakeClient) Configure(broker.Config) error { return nil }

func (c *fakeClient) Subscribe(_ context.Context, topic string) error {
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) Assignment() ([]broker.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int32, 0, len(c.parts))
	for id := range c.parts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	tps := make([]broker.TopicPartition, len(ids))
	for i, id := range ids {
		tps[i] = broker.TopicPartition{Topic: c.topic, Partition: id}
	}
	return tps, nil
}

func (c *fakeClient) Offsets(_ context.Context, tp broker.TopicPartition) (int64, int64, error) {
	if c.offsetsErr != nil {
		return 0, 0, c.offsetsErr
	}
	p := c.parts[tp.Partition]
	end := p.start + int64(len(p.present))
	if p.endOverride > 0 {
		end = p.endOverride
	}
	return p.start, end, nil
}

func (c *fakeClient) ConsumePartition(_ context.Context, tp broker.TopicPartition) (broker.PartitionStream, error) {
	p := c.parts[tp.Partition]
	recs := append(append([]broker.Record{}, p.present...), p.late...)
	s := newFakeStream(recs, c.streamErr)
	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()
	return s, nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, s := range c.streams {
		_ = s.Close()
	}
	c.streams = nil
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func records(partition int32, from, to int64) []broker.Record {
	var recs []broker.Record
	for off := from; off < to; off++ {
		recs = append(recs, broker.Record{
			TopicPartition: broker.TopicPartition{Topic: "t", Partition: partition},
			Offset:         off,
			Key:            []byte(fmt.Sprintf("k%d", off)),
			Value:          []byte(fmt.Sprintf(`{"p":%d,"off":%d}`, partition, off)),
		})
	}
	return recs
}

func rawValueDecoder(t *testing.T) decode.Decoder {
	t.Helper()
	d, err := decode.New(decode.RawValue, decode.Format{Type: "json"}, "")
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return d
}

func drain(t *testing.T, s *Stream) []string {
	t.Helper()
	var out []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-s.Chunks():
			if !ok {
				return out
			}
			out = append(out, string(chunk))
		case <-timeout:
			t.Fatal("stream did not terminate")
		}
	}
}

func TestFetchStopsAtSnapshotBound(t *testing.T) {
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {present: records(0, 0, 5), late: records(0, 5, 10)},
	}}
	c := New(cl, rawValueDecoder(t))

	s, err := c.Fetch(context.Background(), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got := drain(t, s)
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	want := make([]string, 0, 5)
	for _, r := range records(0, 0, 5) {
		want = append(want, string(r.Value))
	}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q (offset order broken)", i, got[i], want[i])
		}
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after stream finished")
	}
}

func TestFetchEmptyPartition(t *testing.T) {
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {start: 42}, // end == start, nothing present
	}}
	c := New(cl, rawValueDecoder(t))

	s, err := c.Fetch(context.Background(), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := drain(t, s); len(got) != 0 {
		t.Fatalf("empty partition yielded %d chunks", len(got))
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
}

func TestFetchMergesPartitions(t *testing.T) {
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {present: records(0, 0, 3)},
		1: {present: records(1, 0, 4)},
		2: {}, // empty partitions must not block the merge
	}}
	c := New(cl, rawValueDecoder(t))

	s, err := c.Fetch(context.Background(), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got := drain(t, s)
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d chunks, want 7", len(got))
	}

	// Within a partition the offsets must be in order; across partitions
	// anything goes.
	lastOff := map[string]int64{}
	for _, chunk := range got {
		var p, off int64
		if _, err := fmt.Sscanf(chunk, `{"p":%d,"off":%d}`, &p, &off); err != nil {
			t.Fatalf("bad chunk %q: %v", chunk, err)
		}
		key := fmt.Sprint(p)
		if prev, ok := lastOff[key]; ok && off <= prev {
			t.Fatalf("partition %d out of order: %d after %d", p, off, prev)
		}
		lastOff[key] = off
	}
}

func TestFetchDecodeErrorTerminates(t *testing.T) {
	bad := broker.Record{
		TopicPartition: broker.TopicPartition{Topic: "t", Partition: 0},
		Offset:         0,
		Value:          []byte("not json"),
	}
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {present: []broker.Record{bad}},
		1: {present: records(1, 0, 1000)},
	}}
	dec, err := decode.New(decode.Envelope, decode.Format{Type: "json"}, "")
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	c := New(cl, dec)

	s, err := c.Fetch(context.Background(), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	drain(t, s)

	var de *decode.Error
	if err := s.Err(); !errors.As(err, &de) {
		t.Fatalf("stream error = %v, want a decode error", err)
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after decode failure")
	}
}

func TestFetchBrokerStreamErrorTerminates(t *testing.T) {
	// The snapshot sees five records but the stream serves only three
	// before failing, so the task is still waiting when the error fires.
	cl := &fakeClient{
		parts:     map[int32]*fakePartition{0: {present: records(0, 0, 3), endOverride: 5}},
		streamErr: errors.New("leader moved"),
	}
	c := New(cl, rawValueDecoder(t))

	s, err := c.Fetch(context.Background(), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	drain(t, s)

	var be *broker.Error
	if err := s.Err(); !errors.As(err, &be) {
		t.Fatalf("stream error = %v, want a broker error", err)
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after stream error")
	}
}

func TestFetchCloseReleasesClient(t *testing.T) {
	// A heavily populated partition that the test never drains: Close must
	// still terminate the fetch promptly and close the client.
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {present: records(0, 0, 100000)},
	}}
	c := New(cl, rawValueDecoder(t))

	s, err := c.Fetch(context.Background(), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// Consume a couple of chunks, then abandon the stream.
	<-s.Chunks()
	<-s.Chunks()

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after Close")
	}
}

func TestFetchCancelledContextReleasesClient(t *testing.T) {
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {present: records(0, 0, 100000)},
	}}
	c := New(cl, rawValueDecoder(t))

	ctx, cancel := context.WithCancel(context.Background())
	s, err := c.Fetch(ctx, "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	<-s.Chunks()
	cancel()
	drain(t, s)
	if err := s.Err(); err == nil {
		t.Fatal("expected a cancellation error")
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after cancellation")
	}
}

func TestFetchSubscribeErrorClosesClient(t *testing.T) {
	cl := &fakeClient{subscribeErr: &broker.Error{Op: "subscribe", Err: errors.New("no brokers")}}
	c := New(cl, rawValueDecoder(t))
	if _, err := c.Fetch(context.Background(), "t"); err == nil {
		t.Fatal("expected subscribe error")
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after subscribe failure")
	}
}

func TestFetchOffsetLookupErrorClosesClient(t *testing.T) {
	cl := &fakeClient{
		parts:      map[int32]*fakePartition{0: {present: records(0, 0, 2)}},
		offsetsErr: &broker.Error{Op: "offsets", Err: errors.New("boom")},
	}
	c := New(cl, rawValueDecoder(t))
	if _, err := c.Fetch(context.Background(), "t"); err == nil {
		t.Fatal("expected offset lookup error")
	}
	if !cl.isClosed() {
		t.Fatal("client not closed after offset failure")
	}
}

func TestTakeFreezesOffsets(t *testing.T) {
	cl := &fakeClient{parts: map[int32]*fakePartition{
		0: {start: 10, present: records(0, 10, 15)},
		1: {start: 4}, // empty
	}}
	if err := cl.Subscribe(context.Background(), "t"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	offs, err := Take(context.Background(), cl)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	p0 := broker.TopicPartition{Topic: "t", Partition: 0}
	p1 := broker.TopicPartition{Topic: "t", Partition: 1}
	if got := offs.End(p0); got != 15 {
		t.Fatalf("end(p0) = %d, want 15", got)
	}
	if offs.Empty(p0) {
		t.Fatal("p0 should not be empty")
	}
	if !offs.Empty(p1) {
		t.Fatal("p1 should be empty")
	}
	if len(offs.Partitions()) != 2 {
		t.Fatalf("partitions = %v", offs.Partitions())
	}
}
