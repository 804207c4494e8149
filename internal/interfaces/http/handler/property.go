package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/application/leasing"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
)

// PropertyHandler handles property-related API endpoints
type PropertyHandler struct {
	BaseHandler
	service *leasing.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler
func NewPropertyHandler(service *leasing.PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// PropertyResponse represents a property in API responses
type PropertyResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func toPropertyResponse(property *rentals.Property) PropertyResponse {
	return PropertyResponse{
		ID:        property.ID.String(),
		CompanyID: property.CompanyID.String(),
		Name:      property.Name,
		Code:      property.Code,
		Address:   property.Address,
		City:      property.City,
		Status:    string(property.Status),
		CreatedAt: property.CreatedAt,
		UpdatedAt: property.UpdatedAt,
		Version:   property.Version,
	}
}

// CreatePropertyRequest represents a request to create a property
type CreatePropertyRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Address string `json:"address" binding:"max=500"`
	City    string `json:"city" binding:"max=100"`
}

// CreateProperty registers a new property and derives its series code
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	property, err := h.service.CreateProperty(c.Request.Context(), leasing.CreatePropertyCommand{
		CompanyID: companyID,
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPropertyResponse(property))
}

// GetProperty returns a single property by ID
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	property, err := h.service.GetProperty(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPropertyResponse(property))
}

// ListProperties returns properties for the company with pagination
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	filter := req.ToFilter()

	properties, err := h.service.ListProperties(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]PropertyResponse, 0, len(properties))
	for i := range properties {
		responses = append(responses, toPropertyResponse(&properties[i]))
	}

	total, err := h.service.CountProperties(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// ArchiveProperty archives a property, blocking new documents against it
func (h *PropertyHandler) ArchiveProperty(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	property, err := h.service.ArchiveProperty(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPropertyResponse(property))
}
