package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/middleware"
	"product-drafts-service/internal/models"
)

// SubmissionLister reads the submission history
type SubmissionLister interface {
	ListByTenant(ctx context.Context, tenantID, productType string, outcome models.SubmissionOutcome, limit, offset int) ([]models.DraftSubmission, int64, error)
	ListByDraft(ctx context.Context, tenantID string, draftID uuid.UUID) ([]models.DraftSubmission, error)
}

type SubmissionsHandler struct {
	history         SubmissionLister
	defaultPageSize int
	maxPageSize     int
	logger          *logrus.Entry
}

// NewSubmissionsHandler creates the history handler; history may be nil when
// no database is configured.
func NewSubmissionsHandler(history SubmissionLister, defaultPageSize, maxPageSize int, logger *logrus.Logger) *SubmissionsHandler {
	if logger == nil {
		logger = logrus.New()
	}
	if defaultPageSize < 1 {
		defaultPageSize = 20
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &SubmissionsHandler{
		history:         history,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger.WithField("component", "submissions_handler"),
	}
}

// ListSubmissions godoc
// @Summary List draft submissions
// @Description Submission history of the tenant, newest first. With draftId, every attempt for that draft, oldest first.
// @Tags submissions
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param draftId query string false "Draft ID"
// @Param productType query string false "Product type"
// @Param outcome query string false "Outcome (SUCCEEDED, FAILED)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} models.SubmissionListResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /submissions [get]
func (h *SubmissionsHandler) ListSubmissions(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "HISTORY_DISABLED",
				Message: "Submission history is not available",
			},
		})
		return
	}

	tenantID := middleware.GetTenantID(c)

	if raw := c.Query("draftId"); raw != "" {
		draftID, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "INVALID_ID", "Invalid draft ID format")
			return
		}
		rows, err := h.history.ListByDraft(c.Request.Context(), tenantID, draftID)
		if err != nil {
			h.fetchFailed(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SubmissionListResponse{Success: true, Data: rows})
		return
	}

	outcome := models.SubmissionOutcome(c.Query("outcome"))
	if outcome != "" && outcome != models.SubmissionSucceeded && outcome != models.SubmissionFailed {
		badRequest(c, "INVALID_OUTCOME", "Outcome must be SUCCEEDED or FAILED")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > h.maxPageSize {
		limit = h.defaultPageSize
	}

	rows, total, err := h.history.ListByTenant(c.Request.Context(), tenantID, c.Query("productType"), outcome, limit, (page-1)*limit)
	if err != nil {
		h.fetchFailed(c, err)
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, models.SubmissionListResponse{
		Success: true,
		Data:    rows,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

func (h *SubmissionsHandler) fetchFailed(c *gin.Context, err error) {
	h.logger.WithError(err).Error("Failed to list submissions")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "FETCH_FAILED",
			Message: "Failed to retrieve submissions",
		},
	})
}
