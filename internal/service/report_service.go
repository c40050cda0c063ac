package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"pos-service/internal/apperror"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	reportCachePrefix = "report:"
	trendDays         = 7
	dayLayout         = "2006-01-02"
	trendLabelLayout  = "02-Jan"
)

// Report granularities
const (
	GranularityDaily   = "daily"
	GranularityMonthly = "monthly"
	GranularityYearly  = "yearly"
)

var periodLayouts = map[string]string{
	GranularityDaily:   "2006-01-02",
	GranularityMonthly: "2006-01",
	GranularityYearly:  "2006",
}

// ReportService aggregates ACTIVE bills. Refunded and cancelled bills never count.
type ReportService struct {
	repo     ReportRepository
	cache    Cache
	cacheTTL time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewReportService creates a new report service. Periods are cut in loc.
func NewReportService(repo ReportRepository, cache Cache, cacheTTL time.Duration, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		repo:     repo,
		cache:    cacheOrNop(cache),
		cacheTTL: cacheTTL,
		loc:      loc,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// SalesByRange totals ACTIVE bills of one day (2006-01-02), month (2006-01) or
// year (2006). An empty key means the current period.
func (s *ReportService) SalesByRange(ctx context.Context, granularity, key string) (*models.SalesReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.SalesByRange")
	defer span.End()

	from, to, key, err := s.period(granularity, key)
	if err != nil {
		return nil, err
	}

	report := &models.SalesReport{}
	cacheKey := fmt.Sprintf("%ssales:%s:%s", reportCachePrefix, granularity, key)
	if s.cached(ctx, "sales", cacheKey, report) {
		return report, nil
	}
	defer observe("sales", time.Now())

	bills, err := s.repo.ListBillSummaries(ctx, models.BillStatusActive, from, to)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	report = &models.SalesReport{
		Granularity: granularity,
		Period:      key,
		TotalSales:  decimal.Zero,
		BillCount:   len(bills),
		Bills:       bills,
	}
	for _, b := range bills {
		report.TotalSales = report.TotalSales.Add(b.TotalAmount)
	}

	s.store(ctx, cacheKey, report)
	return report, nil
}

// period resolves a granularity and key to a half-open [from, to) window in the store zone.
func (s *ReportService) period(granularity, key string) (time.Time, time.Time, string, error) {
	layout, ok := periodLayouts[granularity]
	if !ok {
		return time.Time{}, time.Time{}, "", apperror.ErrInvalidInput.WithMessage("invalid report type %q", granularity)
	}
	if key == "" {
		key = s.now().In(s.loc).Format(layout)
	}
	from, err := time.ParseInLocation(layout, key, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, "", apperror.ErrInvalidDate.WithMessage("invalid date %q for %s report, expected %s", key, granularity, layout)
	}

	var to time.Time
	switch granularity {
	case GranularityDaily:
		to = from.AddDate(0, 0, 1)
	case GranularityMonthly:
		to = from.AddDate(0, 1, 0)
	default:
		to = from.AddDate(1, 0, 0)
	}
	return from, to, key, nil
}

// ItemSales reports net quantity and revenue per item, optionally limited to
// the inclusive day range [start, end]. Give both days or neither.
//
// Figures are net of refunds: qty is quantity - refunded_qty and revenue is
// unit_price * qty, not the gross quantity and line_total rung up. Summed over
// all items they equal the bill totals SalesByRange reports. Items with every
// unit refunded are omitted.
func (s *ReportService) ItemSales(ctx context.Context, start, end string) ([]models.ItemSales, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.ItemSales")
	defer span.End()

	from, to, err := s.dayRange(start, end)
	if err != nil {
		return nil, err
	}

	var rows []models.ItemSales
	cacheKey := fmt.Sprintf("%sitems:%s:%s", reportCachePrefix, start, end)
	if s.cached(ctx, "items", cacheKey, &rows) {
		return rows, nil
	}
	defer observe("items", time.Now())

	rows, err = s.repo.ItemSales(ctx, models.BillStatusActive, from, to)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	s.store(ctx, cacheKey, rows)
	return rows, nil
}

func (s *ReportService) dayRange(start, end string) (*time.Time, *time.Time, error) {
	if start == "" && end == "" {
		return nil, nil, nil
	}
	if start == "" || end == "" {
		return nil, nil, apperror.ErrInvalidInput.WithMessage("start and end must be given together")
	}

	from, err := time.ParseInLocation(dayLayout, start, s.loc)
	if err != nil {
		return nil, nil, apperror.ErrInvalidDate.WithMessage("invalid start date %q, expected YYYY-MM-DD", start)
	}
	last, err := time.ParseInLocation(dayLayout, end, s.loc)
	if err != nil {
		return nil, nil, apperror.ErrInvalidDate.WithMessage("invalid end date %q, expected YYYY-MM-DD", end)
	}
	if last.Before(from) {
		return nil, nil, apperror.ErrInvalidInput.WithMessage("end date is before start date")
	}

	to := last.AddDate(0, 0, 1)
	return &from, &to, nil
}

// Analysis returns net revenue per category and the ACTIVE sales of the last
// seven calendar days, today included, with empty days as zero. Category
// revenue subtracts refunded units, like ItemSales.
func (s *ReportService) Analysis(ctx context.Context) (*models.Analysis, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Analysis")
	defer span.End()

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	analysis := &models.Analysis{}
	cacheKey := fmt.Sprintf("%sanalysis:%s", reportCachePrefix, today.Format(dayLayout))
	if s.cached(ctx, "analysis", cacheKey, analysis) {
		return analysis, nil
	}
	defer observe("analysis", time.Now())

	categories, err := s.repo.CategorySales(ctx, models.BillStatusActive)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	first := today.AddDate(0, 0, -(trendDays - 1))
	bills, err := s.repo.ListBillSummaries(ctx, models.BillStatusActive, first, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	analysis = &models.Analysis{
		CategorySplit: make(map[string]decimal.Decimal, len(categories)),
		TrendLabels:   make([]string, trendDays),
		TrendData:     make([]decimal.Decimal, trendDays),
	}
	for _, c := range categories {
		analysis.CategorySplit[c.Category] = c.Revenue
	}

	index := make(map[string]int, trendDays)
	for i := 0; i < trendDays; i++ {
		day := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, s.loc)
		analysis.TrendLabels[i] = day.Format(trendLabelLayout)
		analysis.TrendData[i] = decimal.Zero
		index[day.Format(dayLayout)] = i
	}
	for _, b := range bills {
		if i, ok := index[b.CreatedAt.In(s.loc).Format(dayLayout)]; ok {
			analysis.TrendData[i] = analysis.TrendData[i].Add(b.TotalAmount)
		}
	}

	s.store(ctx, cacheKey, analysis)
	return analysis, nil
}

// ExportItemSales renders the item-wise report as an XLSX workbook.
func (s *ReportService) ExportItemSales(ctx context.Context, start, end string) ([]byte, error) {
	rows, err := s.ItemSales(ctx, start, end)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Item Sales"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []interface{}{"Code", "Item", "Category", "Quantity", "Revenue"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}

	totalQty := int64(0)
	totalRevenue := decimal.Zero
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{r.Code, r.Name, r.Category, r.Quantity, r.Revenue.InexactFloat64()}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
		totalQty += r.Quantity
		totalRevenue = totalRevenue.Add(r.Revenue)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+2)
	if err != nil {
		return nil, err
	}
	totals := []interface{}{"TOTAL", "", "", totalQty, totalRevenue.InexactFloat64()}
	if err := f.SetSheetRow(sheet, cell, &totals); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// InvalidateReports drops every cached report result
func (s *ReportService) InvalidateReports(ctx context.Context) error {
	n, err := s.cache.DeletePrefix(ctx, reportCachePrefix)
	if err != nil {
		return err
	}
	s.logger.Debug("Report cache invalidated", zap.Int64("keys", n))
	return nil
}

func (s *ReportService) cached(ctx context.Context, report, key string, dest interface{}) bool {
	hit, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.Warn("Report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	util.ReportCacheHits.WithLabelValues(report, result).Inc()
	return hit
}

func (s *ReportService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("Report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func observe(report string, start time.Time) {
	util.ReportLatency.WithLabelValues(report).Observe(time.Since(start).Seconds())
}
