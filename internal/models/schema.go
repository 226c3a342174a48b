package models

import (
	"fmt"
	"strings"
)

// FieldKind is the declared kind of a draft field
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindNumber     FieldKind = "number"
	KindBoolean    FieldKind = "boolean"
	KindRichText   FieldKind = "rich_text"
	KindCollection FieldKind = "collection"
)

// IsScalar reports whether values of this kind are held directly (not as a collection)
func (k FieldKind) IsScalar() bool {
	switch k {
	case KindString, KindNumber, KindBoolean, KindRichText:
		return true
	}
	return false
}

// SubRecord is one element of a named collection.
// Values are normalized: strings, decimal.Decimal numbers and bools.
type SubRecord map[string]any

// Clone returns a shallow copy; all values are immutable scalars
func (r SubRecord) Clone() SubRecord {
	out := make(SubRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FieldSpec describes a single field of a product schema
type FieldSpec struct {
	Name        string          `json:"name"`
	Kind        FieldKind       `json:"kind"`
	Label       string          `json:"label,omitempty"`
	Required    bool            `json:"required,omitempty"`
	Collection  *CollectionSpec `json:"collection,omitempty"`
	Description string          `json:"description,omitempty"`
}

// CollectionSpec describes the shape of the SubRecords held by a collection field
type CollectionSpec struct {
	Fields []FieldSpec `json:"fields"`
	Zero   SubRecord   `json:"zero"`
}

// Field returns the item field spec named key
func (c *CollectionSpec) Field(key string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// ProductSchema is the declarative description of one product type's draft
type ProductSchema struct {
	Type  string `json:"type"`
	Label string `json:"label"`

	// Endpoint is the catalog backend path that receives the multipart POST
	Endpoint string `json:"endpoint"`

	Fields []FieldSpec `json:"fields"`

	// DraftFlag names the payload field that carries draft mode; empty when the
	// product type has no unpublished state
	DraftFlag string `json:"draftFlag,omitempty"`

	// AttachmentField is the multipart part name shared by all image files
	AttachmentField string `json:"attachmentField"`
	MaxAttachments  int    `json:"maxAttachments,omitempty"`

	index map[string]int
}

// Field looks up a top-level field by name
func (s *ProductSchema) Field(name string) (FieldSpec, bool) {
	if s.index != nil {
		i, ok := s.index[name]
		if !ok {
			return FieldSpec{}, false
		}
		return s.Fields[i], true
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Collections returns the collection fields in declaration order
func (s *ProductSchema) Collections() []FieldSpec {
	var out []FieldSpec
	for _, f := range s.Fields {
		if f.Kind == KindCollection {
			out = append(out, f)
		}
	}
	return out
}

// Scalars returns the non-collection fields in declaration order
func (s *ProductSchema) Scalars() []FieldSpec {
	var out []FieldSpec
	for _, f := range s.Fields {
		if f.Kind.IsScalar() {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the schema once at definition time so that the draft store
// never has to guess at a field's shape.
func (s *ProductSchema) Validate() error {
	if strings.TrimSpace(s.Type) == "" {
		return fmt.Errorf("schema type is required")
	}
	if s.AttachmentField == "" {
		return fmt.Errorf("schema %s: attachment field is required", s.Type)
	}
	if s.MaxAttachments < 0 {
		return fmt.Errorf("schema %s: max attachments must not be negative", s.Type)
	}

	index := make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field %d has no name", s.Type, i)
		}
		if _, dup := index[f.Name]; dup {
			return fmt.Errorf("schema %s: duplicate field %q", s.Type, f.Name)
		}
		if f.Name == s.DraftFlag || f.Name == s.AttachmentField {
			return fmt.Errorf("schema %s: field %q collides with a reserved payload field", s.Type, f.Name)
		}
		index[f.Name] = i

		switch {
		case f.Kind.IsScalar():
			if f.Collection != nil {
				return fmt.Errorf("schema %s: scalar field %q must not declare a collection", s.Type, f.Name)
			}
		case f.Kind == KindCollection:
			if err := validateCollection(f); err != nil {
				return fmt.Errorf("schema %s: %w", s.Type, err)
			}
		default:
			return fmt.Errorf("schema %s: field %q has unknown kind %q", s.Type, f.Name, f.Kind)
		}
	}
	if s.DraftFlag != "" && s.DraftFlag == s.AttachmentField {
		return fmt.Errorf("schema %s: draft flag and attachment field share the name %q", s.Type, s.DraftFlag)
	}

	s.index = index
	return nil
}

func validateCollection(f FieldSpec) error {
	c := f.Collection
	if c == nil || len(c.Fields) == 0 {
		return fmt.Errorf("collection %q declares no item fields", f.Name)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, item := range c.Fields {
		if item.Name == "" {
			return fmt.Errorf("collection %q has an unnamed item field", f.Name)
		}
		if seen[item.Name] {
			return fmt.Errorf("collection %q: duplicate item field %q", f.Name, item.Name)
		}
		seen[item.Name] = true
		switch item.Kind {
		case KindString, KindNumber, KindBoolean:
		default:
			return fmt.Errorf("collection %q: item field %q must be string, number or boolean, got %q", f.Name, item.Name, item.Kind)
		}
	}
	if len(c.Zero) != len(c.Fields) {
		return fmt.Errorf("collection %q: zero record must set every item field", f.Name)
	}
	for _, item := range c.Fields {
		v, ok := c.Zero[item.Name]
		if !ok {
			return fmt.Errorf("collection %q: zero record is missing %q", f.Name, item.Name)
		}
		nv, ok := NormalizeValue(item.Kind, v)
		if !ok {
			return fmt.Errorf("collection %q: zero value for %q is not a %s", f.Name, item.Name, item.Kind)
		}
		c.Zero[item.Name] = nv
	}
	return nil
}
