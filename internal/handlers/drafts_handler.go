package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/middleware"
	"product-drafts-service/internal/models"
	"product-drafts-service/internal/repository"
	"product-drafts-service/internal/services"
)

// DraftSubmitter sends a draft to the catalog backend
type DraftSubmitter interface {
	Submit(ctx context.Context, session *repository.DraftSession, draftMode bool, actorID string) (*services.SubmissionResult, error)
}

type DraftsHandler struct {
	repo           *repository.DraftRepository
	submitter      DraftSubmitter
	maxUploadBytes int64
	logger         *logrus.Entry
}

func NewDraftsHandler(repo *repository.DraftRepository, submitter DraftSubmitter, maxUploadBytes int64, logger *logrus.Logger) *DraftsHandler {
	if logger == nil {
		logger = logrus.New()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &DraftsHandler{
		repo:           repo,
		submitter:      submitter,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.WithField("component", "drafts_handler"),
	}
}

type CreateDraftRequest struct {
	ProductType string `json:"productType"`
}

type SetFieldRequest struct {
	Value any `json:"value"`
}

type AppendItemRequest struct {
	Item models.SubRecord `json:"item"`
}

type SetItemFieldRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type SubmitDraftRequest struct {
	DraftMode bool `json:"draftMode"`
}

// CreateDraft godoc
// @Summary Create a draft
// @Description Start an empty draft for a product type, with every collection seeded by its zero record
// @Tags drafts
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param body body CreateDraftRequest true "Product type"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /drafts [post]
func (h *DraftsHandler) CreateDraft(c *gin.Context) {
	var req CreateDraftRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	session, err := h.repo.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req.ProductType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    session.Store.Snapshot(),
	})
}

// ListDrafts godoc
// @Summary List my drafts
// @Tags drafts
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Success 200 {object} models.SuccessResponse
// @Router /drafts [get]
func (h *DraftsHandler) ListDrafts(c *gin.Context) {
	sessions := h.repo.List(middleware.GetTenantID(c), middleware.GetUserID(c))
	snaps := make([]draft.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		snaps = append(snaps, s.Store.Snapshot())
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: snaps})
}

// GetDraft godoc
// @Summary Get a draft
// @Tags drafts
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /drafts/{id} [get]
func (h *DraftsHandler) GetDraft(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: session.Store.Snapshot()})
}

// DeleteDraft godoc
// @Summary Discard a draft
// @Tags drafts
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /drafts/{id} [delete]
func (h *DraftsHandler) DeleteDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetField godoc
// @Summary Set a scalar field
// @Description Replace one scalar field. The value must already have the declared kind: numbers are JSON numbers, booleans JSON booleans.
// @Tags drafts
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param field path string true "Field name"
// @Param body body SetFieldRequest true "New value"
// @Success 200 {object} models.SuccessResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /drafts/{id}/fields/{field} [put]
func (h *DraftsHandler) SetField(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req SetFieldRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	h.mutate(c, session, func() error {
		return session.Store.SetScalar(c.Param("field"), req.Value)
	})
}

// AppendItem godoc
// @Summary Append a collection item
// @Tags drafts
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param collection path string true "Collection name"
// @Param body body AppendItemRequest true "Complete item"
// @Success 200 {object} models.SuccessResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /drafts/{id}/collections/{collection} [post]
func (h *DraftsHandler) AppendItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req AppendItemRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	h.mutate(c, session, func() error {
		return session.Store.AppendItem(c.Param("collection"), req.Item)
	})
}

// SetItemField godoc
// @Summary Set one key of a collection item
// @Tags drafts
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param collection path string true "Collection name"
// @Param index path int true "Item index"
// @Param body body SetItemFieldRequest true "Key and value"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /drafts/{id}/collections/{collection}/{index} [put]
func (h *DraftsHandler) SetItemField(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req SetItemFieldRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	h.mutate(c, session, func() error {
		return session.Store.SetCollectionField(c.Param("collection"), index, req.Key, req.Value)
	})
}

// RemoveItem godoc
// @Summary Remove a collection item
// @Tags drafts
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param collection path string true "Collection name"
// @Param index path int true "Item index"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /drafts/{id}/collections/{collection}/{index} [delete]
func (h *DraftsHandler) RemoveItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	h.mutate(c, session, func() error {
		return session.Store.RemoveItem(c.Param("collection"), index)
	})
}

// AddAttachments godoc
// @Summary Add images to a draft
// @Tags drafts
// @Accept multipart/form-data
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param files formData file true "Image files"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /drafts/{id}/attachments [post]
func (h *DraftsHandler) AddAttachments(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "INVALID_FILE", "Failed to read uploaded files: "+err.Error())
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "NO_FILES", "No files were uploaded")
		return
	}

	field := session.Store.Schema().AttachmentField
	files := make([]draft.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "INVALID_FILE", "Failed to open "+fh.Filename)
			return
		}
		a, err := draft.ReadAttachment(fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			badRequest(c, "INVALID_FILE", "Failed to read "+fh.Filename)
			return
		}
		if !a.IsImage() {
			respondError(c, &draft.ShapeError{Field: field, Expected: "image", Got: a.ContentType})
			return
		}
		files = append(files, a)
	}

	h.mutate(c, session, func() error {
		return session.Store.AddFiles(files...)
	})
}

// RemoveAttachment godoc
// @Summary Remove an image from a draft
// @Tags drafts
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param index path int true "Attachment index"
// @Success 200 {object} models.SuccessResponse
// @Router /drafts/{id}/attachments/{index} [delete]
func (h *DraftsHandler) RemoveAttachment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	h.mutate(c, session, func() error {
		return session.Store.RemoveFile(index)
	})
}

// SubmitDraft godoc
// @Summary Submit a draft
// @Description Encode the draft as multipart form data and send it to the catalog service. The draft is discarded once the backend accepts it.
// @Tags drafts
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Draft ID"
// @Param body body SubmitDraftRequest false "Draft mode"
// @Success 201 {object} models.SuccessResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /drafts/{id}/submit [post]
func (h *DraftsHandler) SubmitDraft(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req SubmitDraftRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			badRequest(c, "INVALID_REQUEST", err.Error())
			return
		}
	}

	result, err := h.submitter.Submit(c.Request.Context(), session, req.DraftMode, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("%s submitted", session.Store.Schema().Label)
	if result.Message != "" {
		message = result.Message
	}
	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    result,
		Message: &message,
	})
}

// mutate runs op, autosaves the draft and answers with the new snapshot
func (h *DraftsHandler) mutate(c *gin.Context, session *repository.DraftSession, op func() error) {
	if err := op(); err != nil {
		respondError(c, err)
		return
	}
	if err := h.repo.Save(c.Request.Context(), session); err != nil {
		h.logger.WithError(err).WithField("draft_id", session.ID()).Warn("Failed to autosave draft")
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: session.Store.Snapshot()})
}

func (h *DraftsHandler) session(c *gin.Context) (*repository.DraftSession, bool) {
	id, ok := draftID(c)
	if !ok {
		return nil, false
	}
	session, err := h.repo.Get(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return session, true
}

func draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", "Invalid draft ID format")
		return uuid.Nil, false
	}
	return id, true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "INVALID_INDEX", "Index must be an integer")
		return 0, false
	}
	return index, true
}
