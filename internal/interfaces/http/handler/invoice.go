package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/propfolio/backend/internal/application/billing"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	service *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID               string     `json:"id"`
	CompanyID        string     `json:"company_id"`
	PropertyID       *string    `json:"property_id,omitempty"`
	LeaseID          *string    `json:"lease_id,omitempty"`
	Number           string     `json:"number"`
	Status           string     `json:"status"`
	TotalAmount      string     `json:"total_amount"`
	IssueDate        time.Time  `json:"issue_date"`
	DueDate          time.Time  `json:"due_date"`
	PaidDate         *time.Time `json:"paid_date,omitempty"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	Description      string     `json:"description,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Version          int        `json:"version"`
}

func toInvoiceResponse(invoice *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:               invoice.ID.String(),
		CompanyID:        invoice.CompanyID.String(),
		Number:           invoice.Number,
		Status:           string(invoice.Status),
		TotalAmount:      invoice.TotalAmount.String(),
		IssueDate:        invoice.IssueDate,
		DueDate:          invoice.DueDate,
		PaidDate:         invoice.PaidDate,
		PaymentMethod:    invoice.PaymentMethod,
		PaymentReference: invoice.PaymentReference,
		Description:      invoice.Description,
		CreatedAt:        invoice.CreatedAt,
		UpdatedAt:        invoice.UpdatedAt,
		Version:          invoice.Version,
	}
	if invoice.PropertyID != nil {
		s := invoice.PropertyID.String()
		resp.PropertyID = &s
	}
	if invoice.LeaseID != nil {
		s := invoice.LeaseID.String()
		resp.LeaseID = &s
	}
	return resp
}

func toInvoiceResponses(invoices []billing.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, toInvoiceResponse(&invoices[i]))
	}
	return responses
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	PropertyID     *string   `json:"property_id" binding:"omitempty,uuid"`
	LeaseID        *string   `json:"lease_id" binding:"omitempty,uuid"`
	TotalAmount    string    `json:"total_amount" binding:"required"`
	IssueDate      time.Time `json:"issue_date" binding:"required"`
	DueDate        time.Time `json:"due_date"`
	Description    string    `json:"description"`
	PropertyScoped bool      `json:"property_scoped"`
}

// CreateInvoice allocates the next invoice number and creates a draft invoice
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "total_amount", Message: "Must be a decimal number"},
		})
		return
	}

	cmd := billingapp.CreateInvoiceCommand{
		CompanyID:      companyID,
		TotalAmount:    amount,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
		Description:    req.Description,
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
	if req.LeaseID != nil {
		id, err := uuid.Parse(*req.LeaseID)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "lease_id", Message: "Must be a valid UUID"},
			})
			return
		}
		cmd.LeaseID = &id
	}

	invoice, err := h.service.CreateInvoice(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// GetInvoice returns a single invoice by ID
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.service.GetInvoice(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// ListInvoices returns invoices for the company with pagination
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
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

	invoices, err := h.service.ListInvoices(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	total, err := h.service.CountInvoices(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toInvoiceResponses(invoices), total, filter.Page, filter.PageSize)
}

// SendInvoice issues a draft invoice
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	h.transition(c, h.service.SendInvoice)
}

// CancelInvoice voids an invoice
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	h.transition(c, h.service.CancelInvoice)
}

func (h *InvoiceHandler) transition(c *gin.Context, fn func(ctx context.Context, companyID, id uuid.UUID) (*billing.Invoice, error)) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := fn(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}
