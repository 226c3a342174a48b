package encoder

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/models"
)

func newDraft(t *testing.T, schema *models.ProductSchema) *draft.Store {
	t.Helper()
	require.NoError(t, schema.Validate())
	return draft.New(schema)
}

func TestEncode_Scalars(t *testing.T) {
	schema := models.PujaSchema(0)
	d := newDraft(t, schema)
	require.NoError(t, d.SetScalar("name", "Navagraha Shanti"))
	require.NoError(t, d.SetScalar("discount", 10))
	require.NoError(t, d.SetScalar("isHaveForm", true))
	require.NoError(t, d.SetScalar("about", "<p>Nine planets</p>"))

	p, err := Encode(schema, d.Snapshot(), false)
	require.NoError(t, err)

	v, _ := p.Value("discount")
	assert.Equal(t, "10", v)
	v, _ = p.Value("isHaveForm")
	assert.Equal(t, "true", v)
	v, _ = p.Value("about")
	assert.Equal(t, "<p>Nine planets</p>", v)
	v, _ = p.Value("stock")
	assert.Equal(t, "0", v)

	_, ok := p.Value("isDraft")
	assert.False(t, ok, "puja carries no draft flag")
}

func TestEncode_FieldOrderFollowsSchema(t *testing.T) {
	schema := models.BraceletSchema(0)
	d := newDraft(t, schema)

	p, err := Encode(schema, d.Snapshot(), true)
	require.NoError(t, err)

	var names []string
	for _, f := range p.Fields() {
		names = append(names, f.Name)
	}
	expected := make([]string, 0, len(schema.Fields)+1)
	for _, f := range schema.Fields {
		expected = append(expected, f.Name)
	}
	expected = append(expected, "isDraft")
	assert.Equal(t, expected, names)

	v, _ := p.Value("isDraft")
	assert.Equal(t, "true", v)
}

func TestEncode_CollectionsAsJSONText(t *testing.T) {
	schema := models.BraceletSchema(0)
	d := newDraft(t, schema)
	require.NoError(t, d.SetCollectionField("sizes", 0, "label", `Small "S"`))
	require.NoError(t, d.SetCollectionField("sizes", 0, "price", 100))
	require.NoError(t, d.SetCollectionField("sizes", 0, "stockCount", 5))
	require.NoError(t, d.AppendItem("sizes", models.SubRecord{"label": "Large", "price": 150.75, "stockCount": 2}))
	require.NoError(t, d.SetCollectionField("energization", 0, "requiresForm", true))

	p, err := Encode(schema, d.Snapshot(), false)
	require.NoError(t, err)

	sizes, _ := p.Value("sizes")
	assert.Equal(t,
		`[{"label":"Small \"S\"","price":100,"stockCount":5},{"label":"Large","price":150.75,"stockCount":2}]`,
		sizes)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(sizes), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Large", decoded[1]["label"])
	assert.Equal(t, 150.75, decoded[1]["price"])

	energization, _ := p.Value("energization")
	assert.Equal(t, `[{"title":"","price":0,"requiresForm":true}]`, energization)
}

func TestEncode_EmptyCollection(t *testing.T) {
	schema := models.BraceletSchema(0)
	d := newDraft(t, schema)
	require.NoError(t, d.RemoveItem("certificates", 0))

	p, err := Encode(schema, d.Snapshot(), false)
	require.NoError(t, err)
	v, _ := p.Value("certificates")
	assert.Equal(t, "[]", v)
}

func TestEncode_ShapeMismatch(t *testing.T) {
	schema := models.BraceletSchema(0)
	d := newDraft(t, schema)

	snap := d.Snapshot()
	snap.Scalars["price"] = "100"
	_, err := Encode(schema, snap, false)
	var shapeErr *draft.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "price", shapeErr.Field)

	snap = d.Snapshot()
	snap.Collections["sizes"][0]["stockCount"] = true
	_, err = Encode(schema, snap, false)
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "sizes[0].stockCount", shapeErr.Field)

	snap = d.Snapshot()
	snap.Scalars["colour"] = "red"
	_, err = Encode(schema, snap, false)
	assert.ErrorIs(t, err, draft.ErrShapeMismatch)

	snap = d.Snapshot()
	_, err = Encode(models.PujaSchema(0), snap, false)
	assert.ErrorIs(t, err, draft.ErrShapeMismatch)
}

func TestEncode_Attachments(t *testing.T) {
	schema := models.RudrakshaSchema(0)
	d := newDraft(t, schema)
	require.NoError(t, d.AddFiles(
		draft.NewAttachment("front.jpg", "image/jpeg", []byte("front")),
		draft.NewAttachment("back.jpg", "image/jpeg", []byte("back")),
	))

	p, err := Encode(schema, d.Snapshot(), true)
	require.NoError(t, err)
	require.Len(t, p.Files(), 2)
	assert.Equal(t, "images", p.Files()[0].FieldName)
	assert.Equal(t, "front.jpg", p.Files()[0].Filename)
	assert.Equal(t, "back.jpg", p.Files()[1].Filename)
}

func TestPayload_Write(t *testing.T) {
	schema := models.BraceletSchema(0)
	d := newDraft(t, schema)
	require.NoError(t, d.SetScalar("name", "Lava Stone"))
	require.NoError(t, d.AddFiles(draft.NewAttachment("lava.png", "image/png", []byte("png-bytes"))))

	p, err := Encode(schema, d.Snapshot(), true)
	require.NoError(t, err)

	body, contentType, err := p.Body()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(body, params["boundary"])
	fields := map[string]string{}
	var files []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FileName() != "" {
			assert.Equal(t, "images", part.FormName())
			assert.Equal(t, "image/png", part.Header.Get("Content-Type"))
			assert.Equal(t, "png-bytes", string(data))
			files = append(files, part.FileName())
			continue
		}
		fields[part.FormName()] = string(data)
	}

	assert.Equal(t, []string{"lava.png"}, files)
	assert.Equal(t, "Lava Stone", fields["name"])
	assert.Equal(t, "true", fields["isDraft"])
	assert.True(t, strings.HasPrefix(fields["sizes"], "["))
	assert.Len(t, fields, len(schema.Fields)+1)
}
