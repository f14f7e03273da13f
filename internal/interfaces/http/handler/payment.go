package handler

import (
	payablesapp "github.com/billpay/backend/internal/application/payables"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *payablesapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *payablesapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Create godoc
// @ID           createPayment
// @Summary      Create a payment
// @Description  Record a payment against a bill of the caller's tenant
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (ignored when the token carries one)"
// @Param        request body payablesapp.CreatePaymentCommand true "Payment"
// @Success      201 {object} Envelope[payablesapp.PaymentResponse]
// @Failure      400 {object} Failure
// @Failure      401 {object} Failure
// @Failure      409 {object} Failure
// @Failure      500 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var cmd payablesapp.CreatePaymentCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), tenantID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// GetByID godoc
// @ID           getPayment
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} Envelope[payablesapp.PaymentResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Description  List payments, most recent first. Without page_size every match is returned.
// @Tags         payments
// @Produce      json
// @Param        bill_id query string false "Bill ID" format(uuid)
// @Param        method query string false "Payment method"
// @Param        paid_from query string false "Earliest payment date (YYYY-MM-DD)"
// @Param        paid_to query string false "Latest payment date (YYYY-MM-DD)"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(500)
// @Success      200 {object} ListEnvelope[payablesapp.PaymentResponse]
// @Failure      400 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var query payablesapp.PaymentListQuery
	if !h.bindQuery(c, &query) {
		return
	}

	result, err := h.paymentService.List(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, size := pageOf(query.Page, query.PageSize)
	h.Paged(c, result.Items, result.Total, page, size)
}

// Update godoc
// @ID           updatePayment
// @Summary      Update a payment
// @Description  Replace the assignable fields of a payment. A version makes the update conditional.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body payablesapp.UpdatePaymentCommand true "Payment"
// @Success      200 {object} Envelope[payablesapp.PaymentResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Failure      409 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var cmd payablesapp.UpdatePaymentCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	payment, err := h.paymentService.Update(c.Request.Context(), tenantID, id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Delete godoc
// @ID           deletePayment
// @Summary      Delete a payment
// @Description  Delete a payment and its stored receipt.
// @Tags         payments
// @Param        id path string true "Payment ID" format(uuid)
// @Success      204
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.paymentService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RequestReceiptUpload godoc
// @ID           requestPaymentReceiptUpload
// @Summary      Request a receipt upload URL
// @Description  Issue a presigned PUT URL for the payment's receipt and record its storage key
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body payablesapp.ReceiptUploadCommand true "Receipt file"
// @Success      200 {object} Envelope[payablesapp.ReceiptURLResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Failure      503 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments/{id}/receipt [post]
func (h *PaymentHandler) RequestReceiptUpload(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var cmd payablesapp.ReceiptUploadCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	receipt, err := h.paymentService.RequestReceiptUpload(c.Request.Context(), tenantID, id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}

// GetReceiptDownload godoc
// @ID           getPaymentReceipt
// @Summary      Get a receipt download URL
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} Envelope[payablesapp.ReceiptURLResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Failure      503 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payments/{id}/receipt [get]
func (h *PaymentHandler) GetReceiptDownload(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	receipt, err := h.paymentService.GetReceiptDownload(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}
