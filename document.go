package querykit

import (
	"encoding/json"

	"github.com/autom8ter/querykit/errors"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is a single json document returned by a query. Documents are
// immutable views over their json encoding; setters produce a reparsed
// encoding.
type Document struct {
	result gjson.Result
}

// UnmarshalJSON satisfies the json Unmarshaler interface
func (d *Document) UnmarshalJSON(bytes []byte) error {
	doc, err := NewDocumentFromBytes(bytes)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// MarshalJSON satisfies the json Marshaler interface
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.Bytes(), nil
}

// NewDocument creates a new empty json document
func NewDocument() *Document {
	parsed := gjson.Parse("{}")
	return &Document{
		result: parsed,
	}
}

// NewDocumentFromBytes creates a new document from the given json bytes
func NewDocumentFromBytes(json []byte) (*Document, error) {
	if !gjson.ValidBytes(json) {
		return nil, errors.New(errors.Validation, "invalid json: %s", string(json))
	}
	d := &Document{
		result: gjson.ParseBytes(json),
	}
	if !d.Valid() {
		return nil, errors.New(errors.Validation, "invalid document")
	}
	return d, nil
}

// NewDocumentFrom creates a new document from the given value - the value
// must be json compatible
func NewDocumentFrom(value any) (*Document, error) {
	bits, err := json.Marshal(value)
	if err != nil {
		return nil, errors.New(errors.Validation, "failed to json encode value: %#v", value)
	}
	return NewDocumentFromBytes(bits)
}

// Valid returns whether the document is valid
func (d *Document) Valid() bool {
	return gjson.ValidBytes(d.Bytes()) && !d.result.IsArray()
}

// String returns the document as a json string
func (d *Document) String() string {
	return d.result.Raw
}

// Bytes returns the document as json bytes
func (d *Document) Bytes() []byte {
	return []byte(d.result.Raw)
}

// Value returns the document as a map
func (d *Document) Value() map[string]any {
	return cast.ToStringMap(d.result.Value())
}

// Clone allocates a new document with identical values
func (d *Document) Clone() *Document {
	raw := d.result.Raw
	return &Document{result: gjson.Parse(raw)}
}

// ID returns the document's identifier (the _id field)
func (d *Document) ID() string {
	return d.GetString("_id")
}

// Exists returns whether the field exists on the document. Dot notation is
// supported.
func (d *Document) Exists(field string) bool {
	return d.result.Get(field).Exists()
}

// Get gets a field on the document. Get has gjson syntax support and
// supports dot notation
func (d *Document) Get(field string) any {
	return d.result.Get(field).Value()
}

// GetString gets a string field value on the document
func (d *Document) GetString(field string) string {
	return d.result.Get(field).String()
}

// GetBool gets a bool field value on the document
func (d *Document) GetBool(field string) bool {
	return cast.ToBool(d.Get(field))
}

// GetFloat gets a float field value on the document
func (d *Document) GetFloat(field string) float64 {
	return cast.ToFloat64(d.Get(field))
}

// Set sets a field on the document. Dot notation is supported.
func (d *Document) Set(field string, val any) error {
	var (
		result string
		err    error
	)
	switch val := val.(type) {
	case gjson.Result:
		result, err = sjson.Set(d.result.Raw, field, val.Value())
	case []byte:
		result, err = sjson.SetRaw(d.result.Raw, field, string(val))
	default:
		result, err = sjson.Set(d.result.Raw, field, val)
	}
	if err != nil {
		return err
	}
	if !gjson.Valid(result) {
		return errors.New(errors.Validation, "invalid document")
	}
	d.result = gjson.Parse(result)
	return nil
}

// SetAll sets all the fields on the document
func (d *Document) SetAll(values map[string]any) error {
	for k, v := range values {
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Project returns a copy of the document restricted to the given fields.
// The _id field is always kept.
func (d *Document) Project(fields []string) (*Document, error) {
	out := NewDocument()
	if id := d.result.Get("_id"); id.Exists() {
		if err := out.Set("_id", id.Value()); err != nil {
			return nil, err
		}
	}
	for _, field := range fields {
		if field == "_id" {
			continue
		}
		result := d.result.Get(field)
		if !result.Exists() {
			continue
		}
		if err := out.Set(field, result.Value()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Documents is an ordered list of documents
type Documents []*Document

// IDs returns the document identifiers in order
func (documents Documents) IDs() []string {
	ids := make([]string, 0, len(documents))
	for _, d := range documents {
		ids = append(ids, d.ID())
	}
	return ids
}

// ForEach executes the given function against each document in order
func (documents Documents) ForEach(fn func(next *Document, i int)) {
	for i, d := range documents {
		fn(d, i)
	}
}
