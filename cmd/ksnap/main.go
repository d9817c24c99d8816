package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"ksnap/broker"
	"ksnap/broker/kafka"
	"ksnap/internal/engine"
	"ksnap/internal/logging"
)

func main() {
	specPath := flag.String("spec", "fetch.yml", "path to the fetch spec")
	metricsPort := flag.Int("metrics-port", 0, "override the metrics port from the fetch spec")
	flag.Parse()

	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker.Register("sarama", func() broker.Client { return &kafka.SaramaDriver{} })
	broker.Register("kafka-go", func() broker.Client { return &kafka.KafkaGoDriver{} })

	e, err := engine.Bootstrap(engine.Config{
		SpecPath:    *specPath,
		MetricsPort: *metricsPort,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
