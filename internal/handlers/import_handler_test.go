package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"product-drafts-service/internal/middleware"
	"product-drafts-service/internal/models"
	"product-drafts-service/internal/repository"
)

type importFixture struct {
	router  *gin.Engine
	repo    *repository.DraftRepository
	schemas *models.SchemaRegistry
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	schemas, err := models.DefaultSchemaRegistry(0)
	require.NoError(t, err)
	repo := repository.NewDraftRepository(schemas, nil, 0, quietLogger())
	schemaHandler := NewSchemaHandler(schemas)
	importHandler := NewImportHandler(schemas, repo, 1<<20, quietLogger())

	r := gin.New()
	api := r.Group("/api/v1", middleware.DevelopmentAuthMiddleware(), middleware.TenantMiddleware())
	api.GET("/schemas", schemaHandler.ListSchemas)
	api.GET("/schemas/:type", schemaHandler.GetSchema)
	api.GET("/schemas/:type/template", importHandler.GetImportTemplate)
	api.POST("/drafts/import", importHandler.ImportDraft)

	return &importFixture{router: r, repo: repo, schemas: schemas}
}

func (f *importFixture) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Tenant-ID", testTenant)
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *importFixture) upload(t *testing.T, productType string, workbook []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("productType", productType))
	if workbook != nil {
		part, err := mw.CreateFormFile("file", "draft.xlsx")
		require.NoError(t, err)
		_, err = part.Write(workbook)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Tenant-ID", testTenant)
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// fillRow writes values into row, locating each column by its header
func fillRow(t *testing.T, f *excelize.File, sheet string, row int, values map[string]string) {
	t.Helper()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	headers := sheetHeaders(rows[0])

	for name, value := range values {
		col := -1
		for i, h := range headers {
			if h == name {
				col = i
			}
		}
		require.GreaterOrEqual(t, col, 0, "no column %s in %s", name, sheet)
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, value))
	}
}

func workbookBytes(t *testing.T, f *excelize.File) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// ============================================================================
// Schemas
// ============================================================================

func TestListSchemas(t *testing.T) {
	f := newImportFixture(t)

	w := f.get("/api/v1/schemas")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.ProductSchema `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)
	assert.Equal(t, "bracelet", body.Data[0].Type)
	assert.Equal(t, "puja", body.Data[1].Type)
	assert.Equal(t, "rudraksha", body.Data[2].Type)
}

func TestGetSchema(t *testing.T) {
	f := newImportFixture(t)

	w := f.get("/api/v1/schemas/puja")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"endpoint":"/api/v1/pujas"`)
	assert.NotContains(t, w.Body.String(), "draftFlag")

	assert.Equal(t, http.StatusNotFound, f.get("/api/v1/schemas/amulet").Code)
}

// ============================================================================
// Templates
// ============================================================================

func TestGetImportTemplate_JSON(t *testing.T) {
	f := newImportFixture(t)

	w := f.get("/api/v1/schemas/bracelet/template?format=json")
	require.Equal(t, http.StatusOK, w.Code)

	var tpl models.ImportTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tpl))
	names := make([]string, 0, len(tpl.Sheets))
	for _, s := range tpl.Sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Fields", "sizes", "certificates", "energization"}, names)
}

func TestGetImportTemplate_XLSX(t *testing.T) {
	f := newImportFixture(t)

	w := f.get("/api/v1/schemas/puja/template")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "puja_draft_template.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Fields", "packages", "energization", "Instructions"}, wb.GetSheetList())

	rows, err := wb.GetRows("Fields")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "name *", rows[0][0])
	assert.Contains(t, rows[0], "isHaveForm")
}

func TestGetImportTemplate_Errors(t *testing.T) {
	f := newImportFixture(t)

	assert.Equal(t, http.StatusNotFound, f.get("/api/v1/schemas/amulet/template").Code)

	w := f.get("/api/v1/schemas/bracelet/template?format=csv")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "INVALID_FORMAT", code)
}

// ============================================================================
// Import
// ============================================================================

func TestImportDraft_RoundTrip(t *testing.T) {
	f := newImportFixture(t)
	schema, _ := f.schemas.Get("bracelet")

	wb, err := buildTemplateWorkbook(schema)
	require.NoError(t, err)
	fillRow(t, wb, "Fields", 2, map[string]string{"name": "Rose Quartz", "price": "1499.50", "discount": "10", "productAbout": "<p>Calm</p>"})
	fillRow(t, wb, "sizes", 2, map[string]string{"label": "Small", "price": "1499.50", "stockCount": "5"})
	fillRow(t, wb, "sizes", 3, map[string]string{"label": "Large", "price": "1799", "stockCount": "2"})

	w := f.upload(t, "bracelet", workbookBytes(t, wb))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result models.DraftImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)

	session, err := f.repo.Get(context.Background(), testTenant, testUser, mustParse(t, result.DraftID))
	require.NoError(t, err)

	name, _ := session.Store.Scalar("name")
	assert.Equal(t, "Rose Quartz", name)
	price, _ := session.Store.Scalar("price")
	assert.True(t, decimal.RequireFromString("1499.5").Equal(price.(decimal.Decimal)))
	stock, _ := session.Store.Scalar("stock")
	assert.True(t, decimal.Zero.Equal(stock.(decimal.Decimal)))

	sizes, err := session.Store.Collection("sizes")
	require.NoError(t, err)
	require.Len(t, sizes, 2)
	assert.Equal(t, "Large", sizes[1]["label"])
	assert.True(t, decimal.NewFromInt(2).Equal(sizes[1]["stockCount"].(decimal.Decimal)))

	// an empty sheet keeps the zero record
	energization, err := session.Store.Collection("energization")
	require.NoError(t, err)
	assert.Len(t, energization, 1)
}

func TestImportDraft_CellErrors(t *testing.T) {
	f := newImportFixture(t)
	schema, _ := f.schemas.Get("puja")

	wb, err := buildTemplateWorkbook(schema)
	require.NoError(t, err)
	fillRow(t, wb, "Fields", 2, map[string]string{"name": "Rudrabhishek", "price": "eleven hundred", "isHaveForm": "maybe"})
	fillRow(t, wb, "packages", 2, map[string]string{"title": "Family", "price": "2100", "devotees": "four"})

	w := f.upload(t, "puja", workbookBytes(t, wb))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var result models.DraftImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 3)

	byColumn := make(map[string]models.ImportCellError)
	for _, e := range result.Errors {
		byColumn[e.Sheet+"."+e.Column] = e
	}
	assert.Equal(t, 2, byColumn["Fields.price"].Row)
	assert.Contains(t, byColumn["Fields.isHaveForm"].Message, "not a boolean")
	assert.Equal(t, 2, byColumn["packages.devotees"].Row)

	assert.Empty(t, f.repo.List(testTenant, testUser))
}

func TestImportDraft_BadRequests(t *testing.T) {
	f := newImportFixture(t)

	w := f.upload(t, "amulet", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "UNKNOWN_PRODUCT_TYPE", code)

	w = f.upload(t, "bracelet", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ = errorCode(t, w)
	assert.Equal(t, "NO_FILE", code)

	w = f.upload(t, "bracelet", []byte("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ = errorCode(t, w)
	assert.Equal(t, "PARSE_ERROR", code)
}

func TestParseDraftWorkbook_RequiresFieldsSheet(t *testing.T) {
	schema := models.BraceletSchema(0)
	require.NoError(t, schema.Validate())

	wb := excelize.NewFile()
	_, _, err := parseDraftWorkbook(schema, bytes.NewReader(workbookBytes(t, wb)))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Fields"))
}

func TestParseDraftWorkbook_UnknownColumns(t *testing.T) {
	schema := models.BraceletSchema(0)
	require.NoError(t, schema.Validate())

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "Fields"))
	require.NoError(t, wb.SetSheetRow("Fields", "A1", &[]any{"name *", "colour"}))
	require.NoError(t, wb.SetSheetRow("Fields", "A2", &[]any{"Onyx", "black"}))
	_, err := wb.NewSheet("sizes")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("sizes", "A1", &[]any{"label", "weight"}))
	require.NoError(t, wb.SetSheetRow("sizes", "A2", &[]any{"M", "20g"}))

	snap, cellErrs, err := parseDraftWorkbook(schema, bytes.NewReader(workbookBytes(t, wb)))
	require.NoError(t, err)
	require.Len(t, cellErrs, 2)
	assert.Equal(t, models.ImportCellError{Sheet: "Fields", Row: 2, Column: "colour", Message: "unknown column"}, cellErrs[0])
	assert.Equal(t, models.ImportCellError{Sheet: "sizes", Row: 1, Column: "weight", Message: "unknown column"}, cellErrs[1])
	assert.Equal(t, "Onyx", snap.Scalars["name"])
}
