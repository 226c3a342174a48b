package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/middleware"
	"product-drafts-service/internal/models"
	"product-drafts-service/internal/repository"
)

// ImportHandler serves draft workbook templates and turns filled workbooks into drafts
type ImportHandler struct {
	schemas        *models.SchemaRegistry
	repo           *repository.DraftRepository
	maxUploadBytes int64
	logger         *logrus.Entry
}

func NewImportHandler(schemas *models.SchemaRegistry, repo *repository.DraftRepository, maxUploadBytes int64, logger *logrus.Logger) *ImportHandler {
	if logger == nil {
		logger = logrus.New()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &ImportHandler{
		schemas:        schemas,
		repo:           repo,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.WithField("component", "import_handler"),
	}
}

// GetImportTemplate godoc
// @Summary Get the draft import template
// @Description Download the workbook layout for a product type as xlsx, or its description as JSON
// @Tags schemas
// @Produce json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type path string true "Product type"
// @Param format query string false "Template format (json, xlsx)" default(xlsx)
// @Success 200 {object} models.ImportTemplate
// @Failure 404 {object} models.ErrorResponse
// @Router /schemas/{type}/template [get]
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	schema, ok := h.schemas.Get(c.Param("type"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: "Unknown product type",
			},
		})
		return
	}

	switch models.ImportFormat(c.DefaultQuery("format", string(models.ImportFormatXLSX))) {
	case models.ImportFormatJSON:
		c.JSON(http.StatusOK, models.DraftImportTemplate(schema))
	case models.ImportFormatXLSX:
		h.writeXLSXTemplate(c, schema)
	default:
		badRequest(c, "INVALID_FORMAT", "Format must be json or xlsx")
	}
}

func (h *ImportHandler) writeXLSXTemplate(c *gin.Context, schema *models.ProductSchema) {
	f, err := buildTemplateWorkbook(schema)
	if err != nil {
		h.logger.WithError(err).WithField("product_type", schema.Type).Error("Failed to build import template")
		respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_draft_template.xlsx", schema.Type))
	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to write import template")
	}
}

// ImportDraft godoc
// @Summary Import a draft from a workbook
// @Description Create a draft from a filled xlsx template. Nothing is created when any cell fails to parse.
// @Tags drafts
// @Accept multipart/form-data
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param productType formData string true "Product type"
// @Param file formData file true "Filled template"
// @Success 201 {object} models.DraftImportResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.DraftImportResult
// @Router /drafts/import [post]
func (h *ImportHandler) ImportDraft(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	productType := c.PostForm("productType")
	schema, ok := h.schemas.Get(productType)
	if !ok {
		respondError(c, fmt.Errorf("%w: %q", repository.ErrUnknownProduct, productType))
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "NO_FILE", "No file uploaded. Please upload an xlsx workbook.")
		return
	}
	defer file.Close()

	snap, cellErrs, err := parseDraftWorkbook(schema, file)
	if err != nil {
		badRequest(c, "PARSE_ERROR", err.Error())
		return
	}
	if len(cellErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, models.DraftImportResult{
			Success: false,
			Errors:  cellErrs,
			Message: fmt.Sprintf("%d cells could not be imported", len(cellErrs)),
		})
		return
	}

	store, err := draft.Hydrate(schema, snap)
	if err != nil {
		respondError(c, err)
		return
	}
	session, err := h.repo.Add(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), store)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"tenant_id":    session.TenantID,
		"draft_id":     session.ID(),
		"product_type": schema.Type,
	}).Info("Draft imported from workbook")

	c.JSON(http.StatusCreated, models.DraftImportResult{
		Success: true,
		DraftID: session.ID().String(),
	})
}
