package broker

import "fmt"

// Factory builds a Client (e.g., the sarama or kafka-go driver).
type Factory func() Client

var registry = map[string]Factory{}

// Register is called from each driver's init() or main() factory map.
func Register(name string, f Factory) {
	registry[name] = f
}

// New returns a driver by name ("sarama", "kafka-go", ...).
func New(name string) (Client, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("broker: unsupported driver %q", name)
}
