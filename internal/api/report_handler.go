package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// salesReport serves ?type=daily|monthly|yearly&date=<period>
func (h *Handler) salesReport(c *gin.Context) {
	report, err := h.reports.SalesByRange(c.Request.Context(), c.DefaultQuery("type", "daily"), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// itemSalesReport serves ?start=YYYY-MM-DD&end=YYYY-MM-DD, both or neither.
// qty and revenue are net of refunded units, not gross line totals.
func (h *Handler) itemSalesReport(c *gin.Context) {
	rows, err := h.reports.ItemSales(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) exportItemSales(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	data, err := h.reports.ExportItemSales(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	name := "item-sales.xlsx"
	if start != "" {
		name = fmt.Sprintf("item-sales_%s_%s.xlsx", start, end)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// analysis serves the category split (net of refunds) and the 7-day trend
func (h *Handler) analysis(c *gin.Context) {
	result, err := h.reports.Analysis(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
