package sink

import "fmt"

// Adapter is the common behaviour every output sink exposes: it receives
// the decoded chunks of one snapshot fetch, in arrival order.
type Adapter interface {
	Configure(any) error // driver-specific config block => struct
	Write(chunk []byte) error
	Close() error // idempotent; flushes buffered output
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
