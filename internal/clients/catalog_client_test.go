package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/encoder"
	"product-drafts-service/internal/models"
)

func testPayload(t *testing.T) *encoder.Payload {
	t.Helper()
	schema := models.BraceletSchema(0)
	require.NoError(t, schema.Validate())
	d := draft.New(schema)
	require.NoError(t, d.SetScalar("name", "Black Tourmaline"))
	require.NoError(t, d.AddFiles(draft.NewAttachment("stone.png", "image/png", []byte("img"))))

	p, err := encoder.Encode(schema, d.Snapshot(), true)
	require.NoError(t, err)
	return p
}

func newTestClient(url string) *CatalogClient {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCatalogClient(CatalogClientConfig{BaseURL: url, Timeout: time.Second}, logger)
}

func TestCreateProduct_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/bracelets", r.URL.Path)
		assert.Equal(t, "tenant-1", r.Header.Get("X-Tenant-ID"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Black Tourmaline", r.FormValue("name"))
		assert.Equal(t, "true", r.FormValue("isDraft"))
		require.Len(t, r.MultipartForm.File["images"], 1)
		assert.Equal(t, "stone.png", r.MultipartForm.File["images"][0].Filename)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"665f1c2e","name":"Black Tourmaline"},"message":"Bracelet created"}`))
	}))
	defer server.Close()

	created, err := newTestClient(server.URL).CreateProduct(context.Background(), "/api/v1/bracelets", "tenant-1", testPayload(t))
	require.NoError(t, err)
	assert.Equal(t, "665f1c2e", created.ID)
	assert.Equal(t, "Bracelet created", created.Message)
}

func TestCreateProduct_IDForms(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"string id", `{"id":"p-42"}`, "p-42"},
		{"numeric id", `{"id":42}`, "42"},
		{"large numeric id", `{"id":9007199254740993}`, "9007199254740993"},
		{"numeric mongo id", `{"_id":7}`, "7"},
		{"null id falls back to _id", `{"id":null,"_id":"665f"}`, "665f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"success":true,"data":` + tt.data + `}`))
			}))
			defer server.Close()

			created, err := newTestClient(server.URL).CreateProduct(context.Background(), "/api/v1/bracelets", "tenant-1", testPayload(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, created.ID)
		})
	}
}

func TestCreateProduct_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"error string", http.StatusBadRequest, `{"success":false,"error":"Name already exists"}`, 400, "Name already exists"},
		{"error object", http.StatusUnprocessableEntity, `{"success":false,"error":{"code":"VALIDATION","message":"Price is required"}}`, 422, "Price is required"},
		{"message only", http.StatusInternalServerError, `{"success":false,"message":"Upload failed"}`, 500, "Upload failed"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, 502, "Bad Gateway"},
		{"success false on 200", http.StatusOK, `{"success":false,"message":"Duplicate slug"}`, 200, "Duplicate slug"},
		{"no id", http.StatusOK, `{"success":true,"data":{}}`, 200, "catalog service did not return a product id"},
		{"object id", http.StatusCreated, `{"success":true,"data":{"id":{"$oid":"665f"}}}`, 201, "catalog service returned an unreadable product id"},
		{"data not an object", http.StatusCreated, `{"success":true,"data":"created"}`, 201, "catalog service returned unreadable product data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CreateProduct(context.Background(), "/api/v1/bracelets", "", testPayload(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransportFailure)

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.wantStatus, te.StatusCode)
			assert.Equal(t, tt.wantMsg, te.Message)
		})
	}
}

func TestCreateProduct_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).CreateProduct(context.Background(), "/api/v1/pujas", "", testPayload(t))
	assert.ErrorIs(t, err, ErrTransportFailure)
}

func TestCreateProduct_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewCatalogClient(CatalogClientConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.CreateProduct(context.Background(), "/api/v1/pujas", "", testPayload(t))
	assert.ErrorIs(t, err, ErrTransportFailure)
}

func TestCreateProduct_RateLimited(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"p-1"}}`))
	}))
	defer server.Close()

	client := NewCatalogClient(CatalogClientConfig{BaseURL: server.URL, RateLimit: 0.001}, nil)
	_, err := client.CreateProduct(context.Background(), "/api/v1/pujas", "", testPayload(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.CreateProduct(ctx, "/api/v1/pujas", "", testPayload(t))
	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
