package engine

import (
	"fmt"

	"ksnap/broker"
	"ksnap/internal/config"
	"ksnap/internal/telemetry"
	"ksnap/sink"
	"ksnap/sink/file"
	"ksnap/sink/stdout"
)

type Config struct {
	SpecPath    string
	MetricsPort int // 0 = use the fetch spec's metrics_port, if any
}

// Bootstrap wires a fetch spec into a runnable engine: the broker client,
// the record decoder, and the output sinks.
func Bootstrap(cfg Config) (*Engine, error) {
	fs, confPath, err := config.LoadFetchSpec(cfg.SpecPath)
	if err != nil {
		return nil, fmt.Errorf("fetch spec: %w", err)
	}
	cc, err := config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	driverName := fs.Source.Driver
	if driverName == "" {
		driverName = "sarama"
	}
	client, err := broker.New(driverName)
	if err != nil {
		return nil, err
	}
	if err := client.Configure(cc.Broker()); err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}

	dec, err := cc.NewDecoder()
	if err != nil {
		return nil, err
	}

	sinkNames := fs.Sinks
	if len(sinkNames) == 0 {
		sinkNames = []string{"stdout"}
	}
	sinks := make([]sink.Adapter, 0, len(sinkNames))
	for _, name := range sinkNames {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "stdout":
			err = sDrv.Configure(stdout.Config{PrintCounter: fs.SinkConfigs.Stdout.PrintCounter})
		case "file":
			err = sDrv.Configure(file.Config{Path: fs.SinkConfigs.File.Path})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sDrv)
	}

	metricsPort := cfg.MetricsPort
	if metricsPort == 0 {
		metricsPort = fs.MetricsPort
	}
	if metricsPort > 0 {
		telemetry.Expose(metricsPort)
	}

	return &Engine{
		client: client,
		dec:    dec,
		topic:  fs.Topic,
		sinks:  sinks,
	}, nil
}
