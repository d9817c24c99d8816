package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load merges a JSON or YAML config file (if present) with env-vars
// (prefix `KSNAP__`, delimiter `__`) and parses the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser = kjson.Parser()
		switch filepath.Ext(path) {
		case ".yml", ".yaml":
			parser = kyaml.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	// schema version check (only when a document is present)
	sv := k.String("schemaVersion")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("config schemaVersion %q not supported (want v1)", sv)
	}

	_ = k.Load(env.ProviderWithValue("KSNAP__", ".", envTransform), nil)

	return Parse(k.Raw())
}

// envFields maps the case-and-underscore-insensitive spelling of an
// env-var segment onto the document key Parse reads. KSNAP__GROUP_ID,
// KSNAP__GROUPID and KSNAP__groupId all land on groupId.
var envFields = map[string]string{
	"schemaversion":     "schemaVersion",
	"bootstrapservers":  "bootstrapServers",
	"groupid":           "groupId",
	"topics":            "topics",
	"decoder":           "decoder",
	"format":            "format",
	"type":              "type",
	"variant":           "variant",
	"precise":           "precise",
	"compression":       "compression",
	"compressionscheme": "compressionScheme",
	"version":           "version",
	"tlsenabled":        "tlsEnabled",
	"sasluser":          "saslUser",
	"saslpass":          "saslPass",
}

// envTransform rewrites KSNAP__-prefixed variables onto document keys:
// `__` separates nesting levels, list values split on commas, and boolean
// fields parse their value so the cursor sees the shape Parse expects.
func envTransform(key, value string) (string, any) {
	segs := strings.Split(strings.TrimPrefix(key, "KSNAP__"), "__")
	for i, seg := range segs {
		canon := strings.ReplaceAll(strings.ToLower(seg), "_", "")
		if field, ok := envFields[canon]; ok {
			segs[i] = field
		} else {
			segs[i] = seg
		}
	}
	k := strings.Join(segs, ".")
	switch segs[len(segs)-1] {
	case "bootstrapServers", "topics":
		return k, strings.Split(value, ",")
	case "tlsEnabled", "precise":
		if b, err := strconv.ParseBool(value); err == nil {
			return k, b
		}
	}
	return k, value
}

// ParseDocument parses one JSON configuration document.
func ParseDocument(data []byte) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), kjson.Parser()); err != nil {
		return Config{}, err
	}
	return Parse(k.Raw())
}

// document is the wire shape of a Config.
type document struct {
	BootstrapServers  []string      `json:"bootstrapServers"`
	GroupID           string        `json:"groupId"`
	Topics            []string      `json:"topics"`
	Decoder           string        `json:"decoder"`
	Format            formatSection `json:"format"`
	CompressionScheme string        `json:"compressionScheme,omitempty"`
	Version           string        `json:"version,omitempty"`
	TLSEnabled        bool          `json:"tlsEnabled,omitempty"`
	SASLUser          string        `json:"saslUser,omitempty"`
	SASLPass          string        `json:"saslPass,omitempty"`
}

type formatSection struct {
	Type    string `json:"type"`
	Variant string `json:"variant,omitempty"`
	Precise bool   `json:"precise"`
}

// MarshalDocument serializes the config so that ParseDocument yields an
// equal value back.
func MarshalDocument(c Config) ([]byte, error) {
	return gojson.Marshal(document{
		BootstrapServers:  c.BootstrapServers,
		GroupID:           c.GroupID,
		Topics:            c.Topics,
		Decoder:           string(c.Decoder),
		Format:            formatSection(c.Format),
		CompressionScheme: c.CompressionScheme,
		Version:           c.Version,
		TLSEnabled:        c.TLSEnabled,
		SASLUser:          c.SASLUser,
		SASLPass:          c.SASLPass,
	})
}
