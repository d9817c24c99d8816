package engine

import (
	"context"

	"ksnap/broker"
	"ksnap/decode"
	"ksnap/internal/logging"
	"ksnap/sink"
	"ksnap/snapshot"
)

type Engine struct {
	client broker.Client
	dec    decode.Decoder
	topic  string
	sinks  []sink.Adapter
}

// Run performs one bounded fetch of the configured topic and streams the
// decoded chunks into every sink. It returns once the snapshot has been
// fully drained, a terminal error occurred, or ctx was cancelled; the
// broker client and the sinks are released on every path.
func (e *Engine) Run(ctx context.Context) error {
	defer e.closeSinks()

	cons := snapshot.New(e.client, e.dec)
	st, err := cons.Fetch(ctx, e.topic)
	if err != nil {
		return err
	}
	defer st.Close()

	for chunk := range st.Chunks() {
		for _, s := range e.sinks {
			if err := s.Write(chunk); err != nil {
				return err
			}
		}
	}
	return st.Err()
}

func (e *Engine) closeSinks() {
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			logging.L().Warn("engine: sink close failed", "err", err)
		}
	}
}
