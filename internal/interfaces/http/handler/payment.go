package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/propfolio/backend/internal/application/billing"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment ingestion and reconciliation endpoints
type PaymentHandler struct {
	BaseHandler
	service *billingapp.ReconciliationService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *billingapp.ReconciliationService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	InvoiceID       *string   `json:"invoice_id,omitempty"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	ReceiptNumber   string    `json:"receipt_number"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	PaymentDate     time.Time `json:"payment_date"`
	Method          string    `json:"method,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int       `json:"version"`
}

func toPaymentResponse(payment *billing.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              payment.ID.String(),
		CompanyID:       payment.CompanyID.String(),
		Amount:          payment.Amount.String(),
		Status:          string(payment.Status),
		ReceiptNumber:   payment.ReceiptNumber,
		ReferenceNumber: payment.ReferenceNumber,
		TransactionID:   payment.TransactionID,
		PaymentDate:     payment.PaymentDate,
		Method:          payment.Method,
		Notes:           payment.Notes,
		CreatedAt:       payment.CreatedAt,
		UpdatedAt:       payment.UpdatedAt,
		Version:         payment.Version,
	}
	if payment.InvoiceID != nil {
		s := payment.InvoiceID.String()
		resp.InvoiceID = &s
	}
	return resp
}

// IngestPaymentRequest represents a provider-reported settlement event
type IngestPaymentRequest struct {
	ProviderReference string    `json:"provider_reference" binding:"required"`
	InvoiceID         string    `json:"invoice_id" binding:"required,uuid"`
	Amount            string    `json:"amount" binding:"required"`
	OccurredAt        time.Time `json:"occurred_at"`
	Method            string    `json:"method"`
}

// IngestPayment records an external settlement event. Replays of the same
// provider reference return the already-recorded payment.
func (h *PaymentHandler) IngestPayment(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req IngestPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "invoice_id", Message: "Must be a valid UUID"},
		})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "amount", Message: "Must be a decimal number"},
		})
		return
	}

	payment, err := h.service.IngestExternalEvent(c.Request.Context(), billingapp.IngestPaymentCommand{
		CompanyID:         companyID,
		ProviderReference: req.ProviderReference,
		InvoiceID:         invoiceID,
		Amount:            amount,
		OccurredAt:        req.OccurredAt,
		Method:            req.Method,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment))
}

// ReconcileRequest represents a reconciliation batch request
type ReconcileRequest struct {
	References []string `json:"references"`
	All        bool     `json:"all"`
}

// ReconcileResultResponse reports a reconciliation batch run. Promoted
// payments and superseded (cancelled) ones are listed separately.
type ReconcileResultResponse struct {
	ReconciledCount int                           `json:"reconciled_count"`
	UpdatedIDs      []string                      `json:"updated_ids"`
	CancelledIDs    []string                      `json:"cancelled_ids"`
	Failures        []billingapp.ReconcileFailure `json:"failures"`
}

// Reconcile runs a reconciliation batch over pending payments
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.ReconcilePending(c.Request.Context(), billingapp.ReconcileCommand{
		CompanyID:  companyID,
		References: req.References,
		All:        req.All,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	updatedIDs := make([]string, 0, len(result.UpdatedIDs))
	for _, id := range result.UpdatedIDs {
		updatedIDs = append(updatedIDs, id.String())
	}
	cancelledIDs := make([]string, 0, len(result.CancelledIDs))
	for _, id := range result.CancelledIDs {
		cancelledIDs = append(cancelledIDs, id.String())
	}
	h.Success(c, ReconcileResultResponse{
		ReconciledCount: result.ReconciledCount,
		UpdatedIDs:      updatedIDs,
		CancelledIDs:    cancelledIDs,
		Failures:        result.Failures,
	})
}

// SyncReferencesResponse reports a payment reference backfill run
type SyncReferencesResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// SyncReferences backfills invoice payment references from their most
// recent settled payment
func (h *PaymentHandler) SyncReferences(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Company identification required")
		return
	}

	updated, err := h.service.SyncInvoicePaymentReferences(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SyncReferencesResponse{UpdatedCount: updated})
}
