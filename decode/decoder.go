// Package decode turns raw broker records into the byte chunks a snapshot
// stream emits. A decoder is picked by Kind, framed by Format, and
// optionally unwraps a compression scheme applied to the record payload.
package decode

import (
	"bytes"
	"fmt"

	"ksnap/broker"

	"github.com/goccy/go-json"
)

// Kind selects which part of a record is decoded and how.
type Kind string

const (
	// RawKey emits the record key bytes.
	RawKey Kind = "RawKey"
	// RawValue emits the record value bytes.
	RawValue Kind = "RawValue"
	// Envelope re-encodes the record value as a JSON object enriched with
	// the record's key, partition, and offset.
	Envelope Kind = "Envelope"
)

// ParseKind validates a decoder name from configuration.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case RawKey, RawValue, Envelope:
		return Kind(s), nil
	}
	return "", fmt.Errorf("decode: unknown decoder %q", s)
}

// Envelope field names, matching the keys other connectors attach to
// Kafka-sourced rows.
const (
	envelopeKey       = "_kafka_key"
	envelopePartition = "_kafka_partition"
	envelopeOffset    = "_kafka_offset"
)

// Error reports one undecodable record. It is terminal for the fetch that
// produced it; records are never skipped.
type Error struct {
	Topic     string
	Partition int32
	Offset    int64
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode: %s[%d]@%d: %v", e.Topic, e.Partition, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decoder converts one raw record into zero or more byte chunks.
type Decoder interface {
	Decode(rec broker.Record) ([][]byte, error)
}

// New builds a Decoder for the given kind, format, and optional
// compression scheme ("" or "none" means uncompressed payloads).
func New(kind Kind, f Format, scheme string) (Decoder, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	dec, err := forScheme(scheme)
	if err != nil {
		return nil, err
	}
	switch kind {
	case RawKey, RawValue:
		return &rawDecoder{kind: kind, format: f, decompress: dec}, nil
	case Envelope:
		return &envelopeDecoder{format: f, decompress: dec}, nil
	}
	return nil, fmt.Errorf("decode: unknown decoder %q", kind)
}

func recErr(rec broker.Record, err error) *Error {
	return &Error{Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset, Err: err}
}

// rawDecoder emits the selected payload bytes, framed per the format.
type rawDecoder struct {
	kind       Kind
	format     Format
	decompress Decompressor
}

func (d *rawDecoder) Decode(rec broker.Record) ([][]byte, error) {
	payload := rec.Value
	if d.kind == RawKey {
		payload = rec.Key
	}
	if len(payload) == 0 {
		return nil, nil
	}
	payload, err := d.decompress(payload)
	if err != nil {
		return nil, recErr(rec, err)
	}

	var chunks [][]byte
	if d.format.LineDelimited() {
		for _, line := range bytes.Split(payload, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			chunks = append(chunks, append(line, '\n'))
		}
	} else {
		chunks = [][]byte{payload}
	}

	if d.format.Precise {
		for _, c := range chunks {
			if err := checkJSON(c); err != nil {
				return nil, recErr(rec, err)
			}
		}
	}
	return chunks, nil
}

// envelopeDecoder merges record metadata into the value's JSON object.
type envelopeDecoder struct {
	format     Format
	decompress Decompressor
}

func (d *envelopeDecoder) Decode(rec broker.Record) ([][]byte, error) {
	if len(rec.Value) == 0 {
		return nil, nil
	}
	payload, err := d.decompress(rec.Value)
	if err != nil {
		return nil, recErr(rec, err)
	}

	var docs [][]byte
	if d.format.LineDelimited() {
		for _, line := range bytes.Split(payload, []byte{'\n'}) {
			if len(line) > 0 {
				docs = append(docs, line)
			}
		}
	} else {
		docs = [][]byte{payload}
	}

	chunks := make([][]byte, 0, len(docs))
	for _, doc := range docs {
		enveloped, err := d.envelope(rec, doc)
		if err != nil {
			return nil, recErr(rec, err)
		}
		chunks = append(chunks, enveloped)
	}
	return chunks, nil
}

func (d *envelopeDecoder) envelope(rec broker.Record, doc []byte) ([]byte, error) {
	data := make(map[string]any)
	jd := json.NewDecoder(bytes.NewReader(doc))
	if d.format.Precise {
		jd.UseNumber()
	}
	if err := jd.Decode(&data); err != nil {
		return nil, err
	}
	data[envelopeKey] = string(rec.Key)
	data[envelopePartition] = rec.Partition
	data[envelopeOffset] = rec.Offset

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// checkJSON rejects chunks that are not a single well-formed JSON document.
func checkJSON(c []byte) error {
	var v any
	jd := json.NewDecoder(bytes.NewReader(c))
	jd.UseNumber()
	if err := jd.Decode(&v); err != nil {
		return err
	}
	return nil
}
