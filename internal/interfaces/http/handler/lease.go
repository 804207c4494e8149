package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/application/leasing"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// LeaseHandler handles lease-related API endpoints
type LeaseHandler struct {
	BaseHandler
	service *leasing.LeaseService
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(service *leasing.LeaseService) *LeaseHandler {
	return &LeaseHandler{service: service}
}

// LeaseResponse represents a lease in API responses
type LeaseResponse struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	PropertyID  *string    `json:"property_id,omitempty"`
	Number      string     `json:"number"`
	TenantName  string     `json:"tenant_name"`
	UnitLabel   string     `json:"unit_label,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	MonthlyRent string     `json:"monthly_rent"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"version"`
}

func toLeaseResponse(lease *rentals.Lease) LeaseResponse {
	resp := LeaseResponse{
		ID:          lease.ID.String(),
		CompanyID:   lease.CompanyID.String(),
		Number:      lease.Number,
		TenantName:  lease.TenantName,
		UnitLabel:   lease.UnitLabel,
		StartDate:   lease.StartDate,
		EndDate:     lease.EndDate,
		MonthlyRent: lease.MonthlyRent.String(),
		Status:      string(lease.Status),
		CreatedAt:   lease.CreatedAt,
		UpdatedAt:   lease.UpdatedAt,
		Version:     lease.Version,
	}
	if lease.PropertyID != nil {
		s := lease.PropertyID.String()
		resp.PropertyID = &s
	}
	return resp
}

// CreateLeaseRequest represents a request to create a lease
type CreateLeaseRequest struct {
	PropertyID     *string    `json:"property_id" binding:"omitempty,uuid"`
	TenantName     string     `json:"tenant_name" binding:"required,max=200"`
	UnitLabel      string     `json:"unit_label" binding:"max=100"`
	StartDate      time.Time  `json:"start_date" binding:"required"`
	EndDate        *time.Time `json:"end_date"`
	MonthlyRent    string     `json:"monthly_rent" binding:"required"`
	PropertyScoped bool       `json:"property_scoped"`
}

// CreateLease allocates the next lease number and creates an active lease
func (h *LeaseHandler) CreateLease(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	rent, err := decimal.NewFromString(req.MonthlyRent)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "monthly_rent", Message: "Must be a decimal number"},
		})
		return
	}

	cmd := leasing.CreateLeaseCommand{
		CompanyID:      companyID,
		TenantName:     req.TenantName,
		UnitLabel:      req.UnitLabel,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		MonthlyRent:    rent,
		PropertyScoped: req.PropertyScoped,
	}
	if req.PropertyID != nil {
		id, err := uuid.Parse(*req.PropertyID)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "property_id", Message: "Must be a valid UUID"},
			})
			return
		}
		cmd.PropertyID = &id
	}

	lease, err := h.service.CreateLease(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toLeaseResponse(lease))
}

// GetLease returns a single lease by ID
func (h *LeaseHandler) GetLease(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	lease, err := h.service.GetLease(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}

// ListLeases returns leases for the company with pagination
func (h *LeaseHandler) ListLeases(c *gin.Context) {
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

	leases, err := h.service.ListLeases(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]LeaseResponse, 0, len(leases))
	for i := range leases {
		responses = append(responses, toLeaseResponse(&leases[i]))
	}

	total, err := h.service.CountLeases(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// TerminateLeaseRequest represents a request to end a lease early
type TerminateLeaseRequest struct {
	At time.Time `json:"at"`
}

// TerminateLease ends a lease before its agreed end date
func (h *LeaseHandler) TerminateLease(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var uriReq dto.IDRequest
	if err := c.ShouldBindUri(&uriReq); err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}
	id, err := uuid.Parse(uriReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	// Body is optional; an empty body terminates as of now
	var req TerminateLeaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
			return
		}
	}

	lease, err := h.service.TerminateLease(c.Request.Context(), companyID, id, req.At)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}
