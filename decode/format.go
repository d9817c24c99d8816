package decode

import "fmt"

// Format describes the data format of decoded chunks. Today the only
// supported type is json, plain or line-delimited; Precise additionally
// enforces number-precision-safe parsing of every chunk.
type Format struct {
	Type    string `json:"type"`
	Variant string `json:"variant,omitempty"`
	Precise bool   `json:"precise"`
}

const (
	FormatJSON         = "json"
	VariantLineDelim   = "line-delimited"
	formatNameJSON     = "json"
	formatNameLineJSON = "ldjson"
)

func (f Format) Validate() error {
	if f.Type != FormatJSON {
		return fmt.Errorf("decode: unsupported format type %q", f.Type)
	}
	switch f.Variant {
	case "", VariantLineDelim:
		return nil
	}
	return fmt.Errorf("decode: unsupported %s variant %q", f.Type, f.Variant)
}

// LineDelimited reports whether chunks are newline-framed documents.
func (f Format) LineDelimited() bool { return f.Variant == VariantLineDelim }

// Name returns the canonical short name of the format.
func (f Format) Name() string {
	if f.LineDelimited() {
		return formatNameLineJSON
	}
	return formatNameJSON
}
