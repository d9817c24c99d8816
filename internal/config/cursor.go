package config

import (
	"fmt"
	"strings"
)

// Step is one field access recorded while walking a configuration
// document downward.
type Step struct {
	Field string
	Found bool
}

// FieldError reports a field that was absent or present with an invalid
// value. Path holds the cursor history leading to the failure, so a caller
// can tell an unresolved field apart from one that resolved to the wrong
// shape.
type FieldError struct {
	Field  string
	Path   []Step
	Reason string // empty means the field was absent
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("required field %q is missing (cursor: %s)", e.Field, renderPath(e.Path))
}

// Absent reports whether the error was an unresolved field rather than an
// invalid value.
func (e *FieldError) Absent() bool { return e.Reason == "" }

func renderPath(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		state := "found"
		if !s.Found {
			state = "missing"
		}
		parts[i] = s.Field + ":" + state
	}
	return strings.Join(parts, ", ")
}

// cursor walks a decoded document, recording every field access. A child
// cursor created by object() shares the parent's history slice so nested
// failures report the full downward path.
type cursor struct {
	doc     map[string]any
	history *[]Step
}

func newCursor(doc map[string]any) *cursor {
	h := make([]Step, 0, 8)
	return &cursor{doc: doc, history: &h}
}

func (c *cursor) step(field string, found bool) {
	*c.history = append(*c.history, Step{Field: field, Found: found})
}

func (c *cursor) get(field string) (any, bool) {
	v, ok := c.doc[field]
	c.step(field, ok)
	return v, ok
}

func (c *cursor) absent(field string) *FieldError {
	path := make([]Step, len(*c.history))
	copy(path, *c.history)
	return &FieldError{Field: field, Path: path}
}

func (c *cursor) invalid(field, format string, args ...any) *FieldError {
	path := make([]Step, len(*c.history))
	copy(path, *c.history)
	return &FieldError{Field: field, Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (c *cursor) stringField(field string) (string, error) {
	v, ok := c.get(field)
	if !ok {
		return "", c.absent(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", c.invalid(field, "%s value must be a string, got %T", field, v)
	}
	return s, nil
}

// stringList resolves a required, non-empty list of strings. An empty list
// is a dedicated error, distinct from a type mismatch.
func (c *cursor) stringList(field string) ([]string, error) {
	v, ok := c.get(field)
	if !ok {
		return nil, c.absent(field)
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			raw = make([]any, len(ss))
			for i, s := range ss {
				raw[i] = s
			}
		} else {
			return nil, c.invalid(field, "%s value must be an array of strings, got %T", field, v)
		}
	}
	if len(raw) == 0 {
		return nil, c.invalid(field, "%s value cannot be an empty array", field)
	}
	out := make([]string, len(raw))
	for i, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, c.invalid(field, "%s[%d] must be a string, got %T", field, i, e)
		}
		out[i] = s
	}
	return out, nil
}

// object resolves a required nested object and returns a child cursor
// positioned inside it.
func (c *cursor) object(field string) (*cursor, error) {
	v, ok := c.get(field)
	if !ok {
		return nil, c.absent(field)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, c.invalid(field, "%s value must be an object, got %T", field, v)
	}
	return &cursor{doc: m, history: c.history}, nil
}

func (c *cursor) optionalString(field string) (string, error) {
	v, ok := c.get(field)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", c.invalid(field, "%s value must be a string, got %T", field, v)
	}
	return s, nil
}

func (c *cursor) optionalBool(field string) (bool, error) {
	v, ok := c.get(field)
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, c.invalid(field, "%s value must be a boolean, got %T", field, v)
	}
	return b, nil
}
