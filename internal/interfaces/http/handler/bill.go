package handler

import (
	payablesapp "github.com/billpay/backend/internal/application/payables"
	"github.com/gin-gonic/gin"
)

// BillHandler handles bill API endpoints
type BillHandler struct {
	BaseHandler
	billService *payablesapp.BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(billService *payablesapp.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

// Create godoc
// @ID           createBill
// @Summary      Create a bill
// @Description  Create a bill in the caller's tenant
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (ignored when the token carries one)"
// @Param        request body payablesapp.CreateBillCommand true "Bill"
// @Success      201 {object} Envelope[payablesapp.BillResponse]
// @Failure      400 {object} Failure
// @Failure      401 {object} Failure
// @Failure      500 {object} Failure
// @Security     BearerAuth
// @Router       /payables/bills [post]
func (h *BillHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var cmd payablesapp.CreateBillCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	bill, err := h.billService.Create(c.Request.Context(), tenantID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bill)
}

// GetByID godoc
// @ID           getBill
// @Summary      Get a bill
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} Envelope[payablesapp.BillResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Security     BearerAuth
// @Router       /payables/bills/{id} [get]
func (h *BillHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	bill, err := h.billService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// List godoc
// @ID           listBills
// @Summary      List bills
// @Description  List bills ordered by due date. Without page_size every match is returned.
// @Tags         bills
// @Produce      json
// @Param        payee_id query string false "Payee ID" format(uuid)
// @Param        status query string false "Status" Enums(Pending, Scheduled, Paid, Overdue, Cancelled)
// @Param        frequency query string false "Billing frequency"
// @Param        due_from query string false "Earliest due date (YYYY-MM-DD)"
// @Param        due_to query string false "Latest due date (YYYY-MM-DD)"
// @Param        search query string false "Case-insensitive name match"
// @Param        auto_pay query bool false "Auto-pay flag"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(500)
// @Success      200 {object} ListEnvelope[payablesapp.BillResponse]
// @Failure      400 {object} Failure
// @Security     BearerAuth
// @Router       /payables/bills [get]
func (h *BillHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var query payablesapp.BillListQuery
	if !h.bindQuery(c, &query) {
		return
	}

	result, err := h.billService.List(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, size := pageOf(query.Page, query.PageSize)
	h.Paged(c, result.Items, result.Total, page, size)
}

// Update godoc
// @ID           updateBill
// @Summary      Update a bill
// @Description  Replace the assignable fields of a bill. A version makes the update conditional.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body payablesapp.UpdateBillCommand true "Bill"
// @Success      200 {object} Envelope[payablesapp.BillResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Failure      409 {object} Failure
// @Security     BearerAuth
// @Router       /payables/bills/{id} [put]
func (h *BillHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var cmd payablesapp.UpdateBillCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	bill, err := h.billService.Update(c.Request.Context(), tenantID, id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// Delete godoc
// @ID           deleteBill
// @Summary      Delete a bill
// @Description  Delete a bill together with its payments.
// @Tags         bills
// @Param        id path string true "Bill ID" format(uuid)
// @Success      204
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Security     BearerAuth
// @Router       /payables/bills/{id} [delete]
func (h *BillHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.billService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
