package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"product-drafts-service/internal/clients"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/models"
	"product-drafts-service/internal/repository"
)

// respondError maps domain errors onto the error envelope
func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.JSON(status, models.ErrorResponse{Success: false, Error: body})
}

func errorBody(err error) (int, models.Error) {
	var shapeErr *draft.ShapeError
	var indexErr *draft.IndexError
	var transportErr *clients.TransportError

	switch {
	case errors.As(err, &shapeErr):
		return http.StatusUnprocessableEntity, models.Error{
			Code:    "SHAPE_MISMATCH",
			Message: fmt.Sprintf("%s must be %s, got %s", shapeErr.Field, shapeErr.Expected, shapeErr.Got),
			Field:   shapeErr.Field,
		}
	case errors.As(err, &indexErr):
		return http.StatusBadRequest, models.Error{
			Code:    "INDEX_OUT_OF_RANGE",
			Message: indexErr.Error(),
			Field:   indexErr.Collection,
		}
	case errors.Is(err, draft.ErrConcurrentSubmission):
		return http.StatusConflict, models.Error{
			Code:    "SUBMISSION_IN_PROGRESS",
			Message: "This draft is already being submitted",
		}
	case errors.Is(err, draft.ErrDraftLocked):
		return http.StatusConflict, models.Error{
			Code:    "DRAFT_LOCKED",
			Message: "The draft cannot be changed while it is being submitted",
		}
	case errors.Is(err, draft.ErrDraftSubmitted):
		return http.StatusConflict, models.Error{
			Code:    "DRAFT_SUBMITTED",
			Message: "The draft has already been submitted",
		}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, models.Error{
			Code:    "TRANSPORT_FAILURE",
			Message: transportErr.Message,
		}
	case errors.Is(err, repository.ErrDraftNotFound):
		return http.StatusNotFound, models.Error{
			Code:    "NOT_FOUND",
			Message: "Draft not found",
		}
	case errors.Is(err, repository.ErrUnknownProduct):
		return http.StatusBadRequest, models.Error{
			Code:    "UNKNOWN_PRODUCT_TYPE",
			Message: err.Error(),
			Field:   "productType",
		}
	}
	return http.StatusInternalServerError, models.Error{
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error occurred",
	}
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// bindJSON decodes the request body keeping numbers as json.Number, so
// decimal values reach the draft without a float64 round trip.
func bindJSON(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return err
	}
	return nil
}
