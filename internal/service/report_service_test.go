package service

import (
	"bytes"
	"testing"
	"time"

	"pos-service/internal/apperror"
	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSalesByRange_ExcludesNonActiveBills(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)
	f.item("SU-009", "Sundaes", 50)

	active := f.bill(CartEntry{Code: "SC-001", Quantity: 3})
	_, err := f.refunds.RefundLine(f.ctx, active.ID, active.Lines[0].ID, &RefundLineRequest{Quantity: 1}, f.admin)
	require.NoError(t, err)
	cancelled := f.bill(CartEntry{Code: "SU-009", Quantity: 1})
	_, err = f.refunds.SetStatus(f.ctx, cancelled.ID, &SetStatusRequest{Status: "CANCELLED"}, f.admin)
	require.NoError(t, err)

	report, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-10")
	require.NoError(t, err)

	assertMoney(t, 80, report.TotalSales)
	assert.Equal(t, 1, report.BillCount)
	require.Len(t, report.Bills, 1)
	assert.Equal(t, "IL00001", report.Bills[0].SeqCode)
	require.NotNil(t, report.Bills[0].OperatorName)
	assert.Equal(t, "amar", *report.Bills[0].OperatorName)
}

func TestSalesByRange_Periods(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)

	f.now = time.Date(2025, 2, 28, 23, 30, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 1})
	f.now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 2})
	f.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 3})

	tests := []struct {
		granularity string
		key         string
		total       int64
		count       int
	}{
		{GranularityDaily, "2025-02-28", 40, 1},
		{GranularityDaily, "2025-03-01", 80, 1},
		{GranularityDaily, "", 120, 1},
		{GranularityMonthly, "2025-03", 200, 2},
		{GranularityMonthly, "2025-02", 40, 1},
		{GranularityYearly, "2025", 240, 3},
		{GranularityYearly, "2024", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.granularity+" "+tt.key, func(t *testing.T) {
			report, err := f.reports.SalesByRange(f.ctx, tt.granularity, tt.key)
			require.NoError(t, err)
			assertMoney(t, tt.total, report.TotalSales)
			assert.Equal(t, tt.count, report.BillCount)
		})
	}
}

func TestSalesByRange_UsesStoreTimeZone(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)
	ist := time.FixedZone("IST", 5*3600+1800)
	f.reports = NewReportService(f.store, nil, time.Minute, ist)

	// 20:00 UTC on the 9th is already the 10th in IST
	f.now = time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 1})

	report, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, report.BillCount)

	report, err = f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, 0, report.BillCount)
}

func TestSalesByRange_BadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "10/03/2025")
	assert.ErrorIs(t, err, apperror.ErrInvalidDate)

	_, err = f.reports.SalesByRange(f.ctx, GranularityMonthly, "2025-03-10")
	assert.ErrorIs(t, err, apperror.ErrInvalidDate)

	_, err = f.reports.SalesByRange(f.ctx, "weekly", "2025-03-10")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestItemSales_NetOfRefundsOrderedByQuantity(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)
	f.item("SU-001", "Sundaes", 150)
	f.item("EX-001", "Extras", 5)

	bill := f.bill(CartEntry{Code: "SC-001", Quantity: 3}, CartEntry{Code: "SU-001", Quantity: 1})
	_, err := f.refunds.RefundLine(f.ctx, bill.ID, bill.Lines[0].ID, &RefundLineRequest{Quantity: 1}, f.admin)
	require.NoError(t, err)
	f.bill(CartEntry{Code: "EX-001", Quantity: 5})
	cancelled := f.bill(CartEntry{Code: "SU-001", Quantity: 4})
	_, err = f.refunds.SetStatus(f.ctx, cancelled.ID, &SetStatusRequest{Status: "CANCELLED"}, f.admin)
	require.NoError(t, err)

	rows, err := f.reports.ItemSales(f.ctx, "", "")
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "EX-001", rows[0].Code)
	assert.Equal(t, int64(5), rows[0].Quantity)
	assert.Equal(t, "SC-001", rows[1].Code)
	assert.Equal(t, int64(2), rows[1].Quantity)
	assertMoney(t, 80, rows[1].Revenue)
	assert.Equal(t, "SU-001", rows[2].Code)
	assertMoney(t, 150, rows[2].Revenue)
}

func TestItemSales_InclusiveDayRange(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)

	f.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 1})
	f.now = time.Date(2025, 3, 5, 23, 59, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 2})
	f.now = time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 4})

	rows, err := f.reports.ItemSales(f.ctx, "2025-03-01", "2025-03-05")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].Quantity)

	_, err = f.reports.ItemSales(f.ctx, "2025-03-01", "")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = f.reports.ItemSales(f.ctx, "2025-03-05", "2025-03-01")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = f.reports.ItemSales(f.ctx, "March", "2025-03-01")
	assert.ErrorIs(t, err, apperror.ErrInvalidDate)
}

func TestAnalysis_TrendAndCategorySplit(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)
	f.item("SU-001", "Sundaes", 150)

	f.now = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SU-001", Quantity: 1})
	f.now = time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	f.bill(CartEntry{Code: "SC-001", Quantity: 1})
	f.now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	bill := f.bill(CartEntry{Code: "SC-001", Quantity: 3})
	_, err := f.refunds.RefundLine(f.ctx, bill.ID, bill.Lines[0].ID, &RefundLineRequest{Quantity: 1}, f.admin)
	require.NoError(t, err)

	analysis, err := f.reports.Analysis(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"04-Mar", "05-Mar", "06-Mar", "07-Mar", "08-Mar", "09-Mar", "10-Mar"}, analysis.TrendLabels)
	require.Len(t, analysis.TrendData, 7)
	assertMoney(t, 40, analysis.TrendData[1])
	assertMoney(t, 0, analysis.TrendData[2])
	assertMoney(t, 80, analysis.TrendData[6])

	assertMoney(t, 120, analysis.CategorySplit["Scoops"])
	assertMoney(t, 150, analysis.CategorySplit["Sundaes"])
}

func TestReports_FreshAfterBillChanges(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)
	f.bill(CartEntry{Code: "SC-001", Quantity: 1})

	daily := func() *models.SalesReport {
		t.Helper()
		report, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-10")
		require.NoError(t, err)
		return report
	}
	scoops := func() decimal.Decimal {
		t.Helper()
		analysis, err := f.reports.Analysis(f.ctx)
		require.NoError(t, err)
		return analysis.CategorySplit["Scoops"]
	}

	first := daily()
	assert.Equal(t, 1, first.BillCount)
	assertMoney(t, 40, first.TotalSales)
	assertMoney(t, 40, scoops())

	bill := f.bill(CartEntry{Code: "SC-001", Quantity: 3})
	created := daily()
	assert.Equal(t, 2, created.BillCount)
	assertMoney(t, 160, created.TotalSales)

	_, err := f.refunds.RefundLine(f.ctx, bill.ID, bill.Lines[0].ID, &RefundLineRequest{Quantity: 1}, f.admin)
	require.NoError(t, err)
	assertMoney(t, 120, daily().TotalSales)
	assertMoney(t, 120, scoops())

	_, err = f.refunds.SetStatus(f.ctx, bill.ID, &SetStatusRequest{Status: "CANCELLED"}, f.admin)
	require.NoError(t, err)
	cancelled := daily()
	assert.Equal(t, 1, cancelled.BillCount)
	assertMoney(t, 40, cancelled.TotalSales)
	assertMoney(t, 40, scoops())
}

func TestReports_CachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	item := f.item("SC-001", "Scoops", 40)
	f.bill(CartEntry{Code: "SC-001", Quantity: 1})

	first, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, first.BillCount)

	// written behind the services' back, so nothing drops the cache
	require.NoError(t, f.store.CreateBill(f.ctx, &models.Bill{
		Status:      models.BillStatusActive,
		TotalAmount: item.Price,
		Lines:       []models.BillLine{{ItemID: item.ID, UnitPrice: item.Price, Quantity: 1, LineTotal: item.Price}},
	}, DefaultSequenceFormat.Code))

	cached, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.BillCount)

	require.NoError(t, f.reports.InvalidateReports(f.ctx))
	fresh, err := f.reports.SalesByRange(f.ctx, GranularityDaily, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.BillCount)
	assertMoney(t, 80, fresh.TotalSales)
}

func TestExportItemSales_Workbook(t *testing.T) {
	f := newFixture(t)
	f.item("SC-001", "Scoops", 40)
	f.bill(CartEntry{Code: "SC-001", Quantity: 3})

	raw, err := f.reports.ExportItemSales(f.ctx, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()

	code, err := wb.GetCellValue("Item Sales", "A2")
	require.NoError(t, err)
	assert.Equal(t, "SC-001", code)
	qty, err := wb.GetCellValue("Item Sales", "D2")
	require.NoError(t, err)
	assert.Equal(t, "3", qty)
	label, err := wb.GetCellValue("Item Sales", "A3")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", label)
}
