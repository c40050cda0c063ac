package api

import (
	"net/http"
	"strconv"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createBill rings up a bill for the current operator
func (h *Handler) createBill(c *gin.Context) {
	var req service.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bill, err := h.billing.CreateBill(c.Request.Context(), &req, currentOperator(c), c.GetHeader("Idempotency-Key"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bill)
}

func (h *Handler) getBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bill, err := h.billing.GetBill(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *Handler) getBillBySeqCode(c *gin.Context) {
	bill, err := h.billing.GetBillBySeqCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (h *Handler) getLatestBill(c *gin.Context) {
	bill, err := h.billing.GetLatestBill(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// listBills serves the admin bill search, ?q=<seq code>&limit=<n>
func (h *Handler) listBills(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	bills, err := h.billing.ListBills(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

func (h *Handler) billHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	history, err := h.refunds.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// refundLine handles a partial refund of one bill line
func (h *Handler) refundLine(c *gin.Context) {
	billID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req service.RefundLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bill, err := h.refunds.RefundLine(c.Request.Context(), billID, lineID, &req, currentOperator(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// setBillStatus handles whole-bill status changes
func (h *Handler) setBillStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bill, err := h.refunds.SetStatus(c.Request.Context(), id, &req, currentOperator(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}
