// Package draft holds one product draft under edit: scalar fields, named
// collections of sub-records and pending image attachments. Every mutation
// goes through a Store operation with a single postcondition, and the store
// refuses mutation while a submission of its snapshot is in flight.
package draft

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"product-drafts-service/internal/models"
)

// State is the submission state of a draft
type State string

const (
	StateEditing    State = "EDITING"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED" // terminal, the backend accepted the draft
)

// Store is the nested form store for one ProductDraft. It is safe for
// concurrent use; operations are serialized under its lock.
type Store struct {
	mu sync.Mutex

	id     uuid.UUID
	schema *models.ProductSchema

	scalars     map[string]any
	collections map[string][]models.SubRecord
	attachments []Attachment

	state     State
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty draft for schema. Every collection starts with one
// zero record so the form never renders an empty collection during creation.
func New(schema *models.ProductSchema) *Store {
	return newStore(uuid.New(), schema)
}

func newStore(id uuid.UUID, schema *models.ProductSchema) *Store {
	now := time.Now().UTC()
	s := &Store{
		id:          id,
		schema:      schema,
		scalars:     make(map[string]any),
		collections: make(map[string][]models.SubRecord),
		state:       StateEditing,
		createdAt:   now,
		updatedAt:   now,
	}
	for _, f := range schema.Fields {
		if f.Kind == models.KindCollection {
			s.collections[f.Name] = []models.SubRecord{f.Collection.Zero.Clone()}
			continue
		}
		s.scalars[f.Name] = models.ZeroValue(f.Kind)
	}
	return s
}

// Hydrate rebuilds a store from a saved snapshot. Missing scalars take their
// zero value and missing collections their zero record; every supplied value
// must match the schema.
func Hydrate(schema *models.ProductSchema, snap Snapshot) (*Store, error) {
	id := snap.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	s := newStore(id, schema)

	for name, raw := range snap.Scalars {
		spec, ok := schema.Field(name)
		if !ok || !spec.Kind.IsScalar() {
			return nil, &ShapeError{Field: name, Expected: "a scalar field of " + schema.Type, Got: "unknown field"}
		}
		v, ok := models.NormalizeValue(spec.Kind, raw)
		if !ok {
			return nil, &ShapeError{Field: name, Expected: string(spec.Kind), Got: models.TypeName(raw)}
		}
		s.scalars[name] = v
	}

	for name, items := range snap.Collections {
		spec, err := s.collectionSpec(name)
		if err != nil {
			return nil, err
		}
		records := make([]models.SubRecord, 0, len(items))
		for i, item := range items {
			rec, err := normalizeRecord(name, i, spec.Collection, item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		s.collections[name] = records
	}

	for _, a := range snap.Attachments {
		if a.Data != nil {
			s.attachments = append(s.attachments, a)
		}
	}

	if !snap.CreatedAt.IsZero() {
		s.createdAt = snap.CreatedAt
	}
	s.version = snap.Version
	return s, nil
}

// ID returns the draft identifier
func (s *Store) ID() uuid.UUID { return s.id }

// Schema returns the schema the draft was created with
func (s *Store) Schema() *models.ProductSchema { return s.schema }

// State returns the current submission state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version increases by one on every mutation that changed the draft
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SetScalar replaces a single top-level scalar or rich-text field
func (s *Store) SetScalar(field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	spec, ok := s.schema.Field(field)
	if !ok || !spec.Kind.IsScalar() {
		got := "unknown field"
		if ok {
			got = string(spec.Kind)
		}
		return &ShapeError{Field: field, Expected: "a scalar field of " + s.schema.Type, Got: got}
	}
	v, ok := models.NormalizeValue(spec.Kind, value)
	if !ok {
		return &ShapeError{Field: field, Expected: string(spec.Kind), Got: models.TypeName(value)}
	}
	s.scalars[field] = v
	s.touch()
	return nil
}

// SetCollectionField replaces exactly one key of the record at index,
// leaving every other record and key untouched.
func (s *Store) SetCollectionField(collection string, index int, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	spec, err := s.collectionSpec(collection)
	if err != nil {
		return err
	}
	items := s.collections[collection]
	if index < 0 || index >= len(items) {
		return &IndexError{Collection: collection, Index: index, Length: len(items)}
	}
	itemSpec, ok := spec.Collection.Field(key)
	if !ok {
		return &ShapeError{Field: itemPath(collection, index, key), Expected: "a field of " + collection, Got: "unknown field"}
	}
	v, ok := models.NormalizeValue(itemSpec.Kind, value)
	if !ok {
		return &ShapeError{Field: itemPath(collection, index, key), Expected: string(itemSpec.Kind), Got: models.TypeName(value)}
	}

	rec := items[index].Clone()
	rec[key] = v
	items[index] = rec
	s.touch()
	return nil
}

// AppendItem appends a fully formed record to the end of collection
func (s *Store) AppendItem(collection string, item models.SubRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	spec, err := s.collectionSpec(collection)
	if err != nil {
		return err
	}
	rec, err := normalizeRecord(collection, -1, spec.Collection, item)
	if err != nil {
		return err
	}
	s.collections[collection] = append(s.collections[collection], rec)
	s.touch()
	return nil
}

// RemoveItem deletes the record at index and shifts later records down.
// An index outside the bounds is ignored so that a click racing a refresh
// does not fail.
func (s *Store) RemoveItem(collection string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if _, err := s.collectionSpec(collection); err != nil {
		return err
	}
	items := s.collections[collection]
	if index < 0 || index >= len(items) {
		return nil
	}
	out := make([]models.SubRecord, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	s.collections[collection] = out
	s.touch()
	return nil
}

// AddFiles appends attachments in the order given
func (s *Store) AddFiles(files ...Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	if limit := s.schema.MaxAttachments; limit > 0 && len(s.attachments)+len(files) > limit {
		return &ShapeError{
			Field:    s.schema.AttachmentField,
			Expected: fmt.Sprintf("at most %d attachments", limit),
			Got:      fmt.Sprintf("%d attachments", len(s.attachments)+len(files)),
		}
	}
	s.attachments = append(s.attachments, files...)
	s.touch()
	return nil
}

// RemoveFile deletes the attachment at index with the same shift semantics
// as RemoveItem; an invalid index is ignored.
func (s *Store) RemoveFile(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.attachments) {
		return nil
	}
	out := make([]Attachment, 0, len(s.attachments)-1)
	out = append(out, s.attachments[:index]...)
	out = append(out, s.attachments[index+1:]...)
	s.attachments = out
	s.touch()
	return nil
}

// Scalar returns the current value of a scalar field
func (s *Store) Scalar(field string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.scalars[field]
	return v, ok
}

// Collection returns a copy of the records of collection
func (s *Store) Collection(collection string) ([]models.SubRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.collectionSpec(collection); err != nil {
		return nil, err
	}
	return cloneRecords(s.collections[collection]), nil
}

// Attachments returns the pending attachments in order
func (s *Store) Attachments() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attachment(nil), s.attachments...)
}

// Snapshot returns a deep copy of the draft
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// BeginSubmit moves the draft from Editing to Submitting and returns the
// snapshot that will be encoded. Until EndSubmit no mutation is accepted, so
// the payload sent always matches the draft that produced it.
func (s *Store) BeginSubmit() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return Snapshot{}, ErrConcurrentSubmission
	case StateSubmitted:
		return Snapshot{}, ErrDraftSubmitted
	}
	s.state = StateSubmitting
	return s.snapshotLocked(), nil
}

// EndSubmit returns the draft to Editing after a failed submission. The
// draft content is kept intact so it can be fixed and resubmitted.
func (s *Store) EndSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		s.state = StateEditing
	}
}

// CompleteSubmit marks a draft the backend accepted. The draft never
// returns to Editing: further submits and mutations are refused.
func (s *Store) CompleteSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateSubmitted
}

func (s *Store) editable() error {
	switch s.state {
	case StateSubmitting:
		return ErrDraftLocked
	case StateSubmitted:
		return ErrDraftSubmitted
	}
	return nil
}

func (s *Store) touch() {
	s.version++
	s.updatedAt = time.Now().UTC()
}

func (s *Store) collectionSpec(name string) (models.FieldSpec, error) {
	spec, ok := s.schema.Field(name)
	if !ok || spec.Kind != models.KindCollection {
		return models.FieldSpec{}, &ShapeError{Field: name, Expected: "a collection of " + s.schema.Type, Got: "unknown collection"}
	}
	return spec, nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		ProductType: s.schema.Type,
		State:       s.state,
		Version:     s.version,
		Scalars:     make(map[string]any, len(s.scalars)),
		Collections: make(map[string][]models.SubRecord, len(s.collections)),
		Attachments: append([]Attachment(nil), s.attachments...),
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
	for k, v := range s.scalars {
		snap.Scalars[k] = v
	}
	for k, items := range s.collections {
		snap.Collections[k] = cloneRecords(items)
	}
	return snap
}

// normalizeRecord checks that item carries exactly the collection's keys with
// values of the declared kinds and returns the normalized copy.
func normalizeRecord(collection string, index int, spec *models.CollectionSpec, item models.SubRecord) (models.SubRecord, error) {
	if item == nil {
		return nil, &ShapeError{Field: fmt.Sprintf("%s[]", collection), Expected: "object", Got: "null"}
	}
	for key := range item {
		if _, ok := spec.Field(key); !ok {
			return nil, &ShapeError{Field: itemPath(collection, index, key), Expected: "a field of " + collection, Got: "unknown field"}
		}
	}
	rec := make(models.SubRecord, len(spec.Fields))
	for _, f := range spec.Fields {
		raw, ok := item[f.Name]
		if !ok {
			return nil, &ShapeError{Field: itemPath(collection, index, f.Name), Expected: string(f.Kind), Got: "missing"}
		}
		v, ok := models.NormalizeValue(f.Kind, raw)
		if !ok {
			return nil, &ShapeError{Field: itemPath(collection, index, f.Name), Expected: string(f.Kind), Got: models.TypeName(raw)}
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func cloneRecords(items []models.SubRecord) []models.SubRecord {
	out := make([]models.SubRecord, len(items))
	for i, r := range items {
		out[i] = r.Clone()
	}
	return out
}
