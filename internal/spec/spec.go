package spec

type sinkConfigs struct {
	Stdout StdoutSink `yaml:"stdout"`
	File   FileSink   `yaml:"file"`
}

// File is the fetch-spec document a ksnap run is driven by: which broker
// driver to use, where its connection config lives, which topic to
// snapshot, and where the resulting byte stream goes.
type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Driver string `yaml:"driver"` // "sarama", "kafka-go"
		Config string `yaml:"config"` // path to the connection config document
	} `yaml:"source"`

	Topic string `yaml:"topic"`

	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`

	MetricsPort int `yaml:"metrics_port"`
}

// FileSink is the file sink's config block.
type FileSink struct {
	Path string `yaml:"path"`
}

// StdoutSink is the stdout sink's config block.
type StdoutSink struct {
	PrintCounter bool `yaml:"print_counter"`
}
