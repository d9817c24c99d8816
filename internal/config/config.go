// Package config holds the connection and decoding configuration consumed
// by a snapshot fetch: parsing with cursor-history errors, validation,
// credential redaction, and whole-value replacement.
package config

import (
	"fmt"

	"ksnap/broker"
	"ksnap/decode"
)

// Redacted is the placeholder Sanitize substitutes for credential values.
// It is deliberately not a valid credential.
const Redacted = "[redacted]"

// Config is the validated configuration entity. It is constructed once at
// startup and only ever replaced as a whole via Reconfigure.
type Config struct {
	BootstrapServers  []string
	GroupID           string
	Topics            []string
	Decoder           decode.Kind
	Format            decode.Format
	CompressionScheme string

	// Connection extras, all optional.
	Version    string
	TLSEnabled bool
	SASLUser   string
	SASLPass   string
}

// Parse builds a Config from a decoded document, distinguishing absent
// fields (reported with the cursor path that failed to resolve) from
// present-but-invalid ones.
func Parse(doc map[string]any) (Config, error) {
	var cfg Config
	cur := newCursor(doc)

	servers, err := cur.stringList("bootstrapServers")
	if err != nil {
		return Config{}, err
	}
	group, err := cur.stringField("groupId")
	if err != nil {
		return Config{}, err
	}
	topics, err := cur.stringList("topics")
	if err != nil {
		return Config{}, err
	}

	decName, err := cur.stringField("decoder")
	if err != nil {
		return Config{}, err
	}
	kind, err := decode.ParseKind(decName)
	if err != nil {
		return Config{}, cur.invalid("decoder", "decoder value %q is not a known decoder", decName)
	}

	fcur, err := cur.object("format")
	if err != nil {
		return Config{}, err
	}
	ftype, err := fcur.stringField("type")
	if err != nil {
		return Config{}, err
	}
	fvariant, err := fcur.optionalString("variant")
	if err != nil {
		return Config{}, err
	}
	fprecise, err := fcur.optionalBool("precise")
	if err != nil {
		return Config{}, err
	}
	format := decode.Format{Type: ftype, Variant: fvariant, Precise: fprecise}
	if err := format.Validate(); err != nil {
		return Config{}, cur.invalid("format", "format value is invalid: %v", err)
	}
	// The descriptor may carry its own compression wrapper; the top-level
	// field wins when both are set.
	fcompress, err := fcur.optionalString("compression")
	if err != nil {
		return Config{}, err
	}

	scheme, err := cur.optionalString("compressionScheme")
	if err != nil {
		return Config{}, err
	}
	if scheme == "" {
		scheme = fcompress
	}
	if !decode.KnownScheme(scheme) {
		return Config{}, cur.invalid("compressionScheme", "compressionScheme value %q is not a known scheme", scheme)
	}

	cfg.BootstrapServers = servers
	cfg.GroupID = group
	cfg.Topics = topics
	cfg.Decoder = kind
	cfg.Format = format
	cfg.CompressionScheme = scheme

	if cfg.Version, err = cur.optionalString("version"); err != nil {
		return Config{}, err
	}
	if cfg.TLSEnabled, err = cur.optionalBool("tlsEnabled"); err != nil {
		return Config{}, err
	}
	if cfg.SASLUser, err = cur.optionalString("saslUser"); err != nil {
		return Config{}, err
	}
	if cfg.SASLPass, err = cur.optionalString("saslPass"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate re-checks the invariants Parse enforces, for configs built in
// code rather than from a document.
func (c Config) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("bootstrapServers value cannot be an empty array")
	}
	if c.GroupID == "" {
		return fmt.Errorf("groupId is required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("topics value cannot be an empty array")
	}
	if _, err := decode.ParseKind(string(c.Decoder)); err != nil {
		return err
	}
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if !decode.KnownScheme(c.CompressionScheme) {
		return fmt.Errorf("compressionScheme value %q is not a known scheme", c.CompressionScheme)
	}
	return nil
}

// Sanitize returns a copy safe for display and logging: credential-bearing
// values are replaced with the Redacted placeholder. Sanitizing twice is
// the same as sanitizing once, and a config with no sensitive values comes
// back unchanged.
func (c Config) Sanitize() Config {
	if c.SASLPass != "" {
		c.SASLPass = Redacted
	}
	return c
}

// Reconfigure replaces current with patch as a whole; fields are never
// merged. A patch still carrying the Redacted placeholder is rejected:
// accepting it would silently install the placeholder as a credential.
func Reconfigure(current, patch Config) (Config, error) {
	if patch.SASLPass == Redacted || patch.SASLUser == Redacted {
		return Config{}, fmt.Errorf("patch carries redacted placeholder values, supply real credentials or omit them")
	}
	if err := patch.Validate(); err != nil {
		return Config{}, err
	}
	return patch, nil
}

// Broker maps the connection fields onto the driver-facing config.
func (c Config) Broker() broker.Config {
	return broker.Config{
		Brokers:    c.BootstrapServers,
		GroupID:    c.GroupID,
		Version:    c.Version,
		TLSEnabled: c.TLSEnabled,
		SASLUser:   c.SASLUser,
		SASLPass:   c.SASLPass,
	}
}

// NewDecoder builds the record decoder described by the config.
func (c Config) NewDecoder() (decode.Decoder, error) {
	return decode.New(c.Decoder, c.Format, c.CompressionScheme)
}
