package broker

import (
	"context"
	"testing"
)

type nopClient struct{}

func (nopClient) Configure(Config) error { return nil }
func (nopClient) Subscribe(context.Context, string) error { return nil }
func (nopClient) Assignment() ([]TopicPartition, error) { return nil, nil }
func (nopClient) Close() error { return nil }
func (nopClient) Offsets(context.Context, TopicPartition) (int64, int64, error) {
	return 0, 0, nil
}
func (nopClient) ConsumePartition(context.Context, TopicPartition) (PartitionStream, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Register("nop", func() Client { return nopClient{} })
	cl, err := New("nop")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := cl.(nopClient); !ok {
		t.Fatalf("unexpected client %T", cl)
	}
	if _, err := New("missing"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
