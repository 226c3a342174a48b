package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"product-drafts-service/internal/models"
)

type SchemaHandler struct {
	schemas *models.SchemaRegistry
}

func NewSchemaHandler(schemas *models.SchemaRegistry) *SchemaHandler {
	return &SchemaHandler{schemas: schemas}
}

// ListSchemas godoc
// @Summary List product schemas
// @Tags schemas
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /schemas [get]
func (h *SchemaHandler) ListSchemas(c *gin.Context) {
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: h.schemas.List()})
}

// GetSchema godoc
// @Summary Get a product schema
// @Tags schemas
// @Produce json
// @Param type path string true "Product type"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /schemas/{type} [get]
func (h *SchemaHandler) GetSchema(c *gin.Context) {
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
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: schema})
}
