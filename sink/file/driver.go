// ksnap/sink/file/driver.go
package file

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"ksnap/sink"
)

/* ────────── public config ────────── */
type Config struct {
	Path string `yaml:"path"`
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu sync.Mutex // guards f and w
	f  *os.File
	w  *bufio.Writer
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return fmt.Errorf("file-sink: path is required")
	}
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	d.cfg, d.f, d.w = c, f, bufio.NewWriter(f)
	return nil
}

func (d *driver) Write(chunk []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return fmt.Errorf("file-sink: closed")
	}
	_, err := d.w.Write(chunk)
	return err
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	flushErr := d.w.Flush()
	closeErr := d.f.Close()
	d.f, d.w = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("file", func() sink.Adapter { return &driver{} })
}
