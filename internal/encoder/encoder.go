// Package encoder turns a draft snapshot into the multipart payload the
// catalog backend expects. It performs no I/O of its own.
package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/models"
)

// Field is one text part of the payload
type Field struct {
	Name  string
	Value string
}

// FilePart is one binary part of the payload
type FilePart struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

// Payload is the transport-ready form of one draft submission.
// It is immutable once Encode returns it.
type Payload struct {
	fields []Field
	files  []FilePart
}

// Fields returns the text parts in wire order
func (p *Payload) Fields() []Field { return p.fields }

// Files returns the binary parts in wire order
func (p *Payload) Files() []FilePart { return p.files }

// Value returns the text value of the named field
func (p *Payload) Value(name string) (string, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Encode flattens snap into a payload following schema:
//   - scalars and rich text become their string form
//   - each collection becomes one field holding the JSON text of the whole sequence
//   - attachments are passed through in order under schema.AttachmentField
//   - the draft flag is emitted only when the schema declares one
//
// Any value that does not match its declared kind fails the whole encode
// with a *draft.ShapeError; no partial payload is returned.
func Encode(schema *models.ProductSchema, snap draft.Snapshot, draftMode bool) (*Payload, error) {
	if snap.ProductType != "" && snap.ProductType != schema.Type {
		return nil, &draft.ShapeError{Field: "productType", Expected: schema.Type, Got: snap.ProductType}
	}
	if err := checkKnownFields(schema, snap); err != nil {
		return nil, err
	}

	p := &Payload{}
	for _, f := range schema.Fields {
		if f.Kind == models.KindCollection {
			text, err := encodeCollection(f, snap.Collections[f.Name])
			if err != nil {
				return nil, err
			}
			p.fields = append(p.fields, Field{Name: f.Name, Value: text})
			continue
		}

		raw, ok := snap.Scalars[f.Name]
		if !ok {
			raw = models.ZeroValue(f.Kind)
		}
		text, ok := models.FormatValue(f.Kind, raw)
		if !ok {
			return nil, &draft.ShapeError{Field: f.Name, Expected: string(f.Kind), Got: models.TypeName(raw)}
		}
		p.fields = append(p.fields, Field{Name: f.Name, Value: text})
	}

	if schema.DraftFlag != "" {
		p.fields = append(p.fields, Field{Name: schema.DraftFlag, Value: strconv.FormatBool(draftMode)})
	}

	for _, a := range snap.Attachments {
		p.files = append(p.files, FilePart{
			FieldName:   schema.AttachmentField,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Data:        a.Data,
		})
	}
	return p, nil
}

func checkKnownFields(schema *models.ProductSchema, snap draft.Snapshot) error {
	names := make([]string, 0, len(snap.Scalars)+len(snap.Collections))
	for name := range snap.Scalars {
		if f, ok := schema.Field(name); !ok || !f.Kind.IsScalar() {
			names = append(names, name)
		}
	}
	for name := range snap.Collections {
		if f, ok := schema.Field(name); !ok || f.Kind != models.KindCollection {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return &draft.ShapeError{Field: names[0], Expected: "a field of " + schema.Type, Got: "unknown field"}
}

// encodeCollection writes the records as a JSON array whose objects keep the
// schema's key order. Numbers are JSON numbers, booleans JSON booleans.
func encodeCollection(f models.FieldSpec, items []models.SubRecord) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if len(rec) != len(f.Collection.Fields) {
			return "", &draft.ShapeError{
				Field:    fmt.Sprintf("%s[%d]", f.Name, i),
				Expected: fmt.Sprintf("%d fields", len(f.Collection.Fields)),
				Got:      fmt.Sprintf("%d fields", len(rec)),
			}
		}
		buf.WriteByte('{')
		for j, item := range f.Collection.Fields {
			path := fmt.Sprintf("%s[%d].%s", f.Name, i, item.Name)
			raw, ok := rec[item.Name]
			if !ok {
				return "", &draft.ShapeError{Field: path, Expected: string(item.Kind), Got: "missing"}
			}
			text, ok := models.FormatValue(item.Kind, raw)
			if !ok {
				return "", &draft.ShapeError{Field: path, Expected: string(item.Kind), Got: models.TypeName(raw)}
			}
			if j > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(item.Name)
			buf.Write(key)
			buf.WriteByte(':')
			if item.Kind == models.KindString {
				quoted, err := json.Marshal(text)
				if err != nil {
					return "", err
				}
				buf.Write(quoted)
			} else {
				buf.WriteString(text)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String(), nil
}
