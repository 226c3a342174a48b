package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Product types served by the drafts service
const (
	ProductTypeBracelet  = "bracelet"
	ProductTypeRudraksha = "rudraksha"
	ProductTypePuja      = "puja"
)

const (
	DefaultAttachmentField = "images"
	DefaultDraftFlag       = "isDraft"
)

// SchemaRegistry holds the validated schemas keyed by product type
type SchemaRegistry struct {
	schemas map[string]*ProductSchema
}

// NewSchemaRegistry validates every schema and indexes it by type
func NewSchemaRegistry(schemas ...*ProductSchema) (*SchemaRegistry, error) {
	r := &SchemaRegistry{schemas: make(map[string]*ProductSchema, len(schemas))}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.schemas[s.Type]; dup {
			return nil, fmt.Errorf("schema %s registered twice", s.Type)
		}
		r.schemas[s.Type] = s
	}
	return r, nil
}

// DefaultSchemaRegistry returns the bracelet, rudraksha and puja schemas.
// maxImages caps attachments per draft (0 means unlimited).
func DefaultSchemaRegistry(maxImages int) (*SchemaRegistry, error) {
	return NewSchemaRegistry(
		BraceletSchema(maxImages),
		RudrakshaSchema(maxImages),
		PujaSchema(maxImages),
	)
}

// Get returns the schema for productType
func (r *SchemaRegistry) Get(productType string) (*ProductSchema, bool) {
	s, ok := r.schemas[productType]
	return s, ok
}

// List returns all schemas ordered by type
func (r *SchemaRegistry) List() []*ProductSchema {
	out := make([]*ProductSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func commonScalars() []FieldSpec {
	return []FieldSpec{
		{Name: "name", Kind: KindString, Label: "Product name", Required: true},
		{Name: "price", Kind: KindNumber, Label: "Price", Required: true},
		{Name: "stock", Kind: KindNumber, Label: "Stock"},
		{Name: "discount", Kind: KindNumber, Label: "Discount (%)"},
		{Name: "shortDescription", Kind: KindString, Label: "Short description"},
		{Name: "externalLink", Kind: KindString, Label: "External link"},
		{Name: "seoTitle", Kind: KindString, Label: "SEO title"},
		{Name: "seoKeywords", Kind: KindString, Label: "SEO keywords"},
		{Name: "seoDescription", Kind: KindString, Label: "SEO description"},
	}
}

func richText(names ...string) []FieldSpec {
	out := make([]FieldSpec, 0, len(names))
	for _, n := range names {
		out = append(out, FieldSpec{Name: n, Kind: KindRichText})
	}
	return out
}

func sizesCollection() FieldSpec {
	return FieldSpec{
		Name:  "sizes",
		Kind:  KindCollection,
		Label: "Sizes",
		Collection: &CollectionSpec{
			Fields: []FieldSpec{
				{Name: "label", Kind: KindString},
				{Name: "price", Kind: KindNumber},
				{Name: "stockCount", Kind: KindNumber},
			},
			Zero: SubRecord{"label": "", "price": decimal.Zero, "stockCount": decimal.Zero},
		},
	}
}

func certificatesCollection() FieldSpec {
	return FieldSpec{
		Name:  "certificates",
		Kind:  KindCollection,
		Label: "Certificates",
		Collection: &CollectionSpec{
			Fields: []FieldSpec{
				{Name: "type", Kind: KindString},
				{Name: "price", Kind: KindNumber},
			},
			Zero: SubRecord{"type": "", "price": decimal.Zero},
		},
	}
}

func energizationCollection() FieldSpec {
	return FieldSpec{
		Name:  "energization",
		Kind:  KindCollection,
		Label: "Energization",
		Collection: &CollectionSpec{
			Fields: []FieldSpec{
				{Name: "title", Kind: KindString},
				{Name: "price", Kind: KindNumber},
				{Name: "requiresForm", Kind: KindBoolean},
			},
			Zero: SubRecord{"title": "", "price": decimal.Zero, "requiresForm": false},
		},
	}
}

func packagesCollection() FieldSpec {
	return FieldSpec{
		Name:  "packages",
		Kind:  KindCollection,
		Label: "Puja packages",
		Collection: &CollectionSpec{
			Fields: []FieldSpec{
				{Name: "title", Kind: KindString},
				{Name: "price", Kind: KindNumber},
				{Name: "devotees", Kind: KindNumber},
			},
			Zero: SubRecord{"title": "", "price": decimal.Zero, "devotees": decimal.NewFromInt(1)},
		},
	}
}

// BraceletSchema describes the bracelet add/edit form
func BraceletSchema(maxImages int) *ProductSchema {
	fields := commonScalars()
	fields = append(fields, richText("productAbout", "features", "benefits", "faqs", "shipping")...)
	fields = append(fields, sizesCollection(), certificatesCollection(), energizationCollection())
	return &ProductSchema{
		Type:            ProductTypeBracelet,
		Label:           "Bracelet",
		Endpoint:        "/api/v1/bracelets",
		Fields:          fields,
		DraftFlag:       DefaultDraftFlag,
		AttachmentField: DefaultAttachmentField,
		MaxAttachments:  maxImages,
	}
}

// RudrakshaSchema describes the rudraksha add/edit form
func RudrakshaSchema(maxImages int) *ProductSchema {
	fields := commonScalars()
	fields = append(fields, richText("description", "significance", "benefits", "faqs", "shipping")...)
	fields = append(fields, sizesCollection(), certificatesCollection(), energizationCollection())
	return &ProductSchema{
		Type:            ProductTypeRudraksha,
		Label:           "Rudraksha",
		Endpoint:        "/api/v1/rudraksha",
		Fields:          fields,
		DraftFlag:       DefaultDraftFlag,
		AttachmentField: DefaultAttachmentField,
		MaxAttachments:  maxImages,
	}
}

// PujaSchema describes the puja booking form. Pujas are always published,
// so the schema carries no draft flag.
func PujaSchema(maxImages int) *ProductSchema {
	fields := commonScalars()
	fields = append(fields, FieldSpec{Name: "isHaveForm", Kind: KindBoolean, Label: "Requires devotee form"})
	fields = append(fields, richText("about", "significance", "process", "benefits", "faqs")...)
	fields = append(fields, packagesCollection(), energizationCollection())
	return &ProductSchema{
		Type:            ProductTypePuja,
		Label:           "Puja",
		Endpoint:        "/api/v1/pujas",
		Fields:          fields,
		AttachmentField: DefaultAttachmentField,
		MaxAttachments:  maxImages,
	}
}
