// ksnap/sink/stdout/driver.go
package stdout

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"ksnap/sink"
)

/* ────────── public config ────────── */
type Config struct {
	PrintCounter bool `yaml:"print_counter"` // prepend seq#
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu sync.Mutex // guards w
	w  *bufio.Writer
}

var seq uint64

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	if raw == nil {
		d.w = bufio.NewWriter(os.Stdout)
		return nil
	}
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg = c
	d.w = bufio.NewWriter(os.Stdout)
	return nil
}

func (d *driver) Write(chunk []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return fmt.Errorf("stdout-sink: closed")
	}
	if d.cfg.PrintCounter {
		if _, err := fmt.Fprintf(d.w, "[%06d] ", atomic.AddUint64(&seq, 1)); err != nil {
			return err
		}
	}
	_, err := d.w.Write(chunk)
	return err
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return nil
	}
	err := d.w.Flush()
	d.w = nil
	return err
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
