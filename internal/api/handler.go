package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-service/config"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the HTTP layer calls into
type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Billing *service.BillingService
	Refunds *service.RefundService
	Reports *service.ReportService
	Store   Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	auth    *service.AuthService
	catalog *service.CatalogService
	billing *service.BillingService
	refunds *service.RefundService
	reports *service.ReportService
	store   Pinger

	loginLimiter *IPRateLimiter
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, authCfg config.AuthConfig) *Handler {
	return &Handler{
		auth:    svc.Auth,
		catalog: svc.Catalog,
		billing: svc.Billing,
		refunds: svc.Refunds,
		reports: svc.Reports,
		store:   svc.Store,
		loginLimiter: NewIPRateLimiter(RateLimiterConfig{
			RequestsPerSecond: authCfg.LoginRatePerSecond,
			BurstSize:         authCfg.LoginBurst,
			EntryTTL:          10 * time.Minute,
		}),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware(allowedOrigins))
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", h.loginLimiter.Middleware(), h.login)

	operator := v1.Group("", h.authRequired())
	{
		operator.GET("/me", h.me)
		operator.GET("/items", h.listItems)
		operator.POST("/bills", h.createBill)
		operator.GET("/bills/latest", h.getLatestBill)
		operator.GET("/bills/:id", h.getBill)
		operator.GET("/bills/by-seq/:code", h.getBillBySeqCode)
	}

	admin := v1.Group("", h.authRequired(), requireAdmin())
	{
		admin.POST("/items", h.createItem)
		admin.GET("/items/categories", h.listCategories)
		admin.PATCH("/items/:id/price", h.updateItemPrice)
		admin.DELETE("/items/:id", h.deleteItem)

		admin.GET("/bills", h.listBills)
		admin.GET("/bills/:id/history", h.billHistory)
		admin.POST("/bills/:id/lines/:lineId/refund", h.refundLine)
		admin.POST("/bills/:id/status", h.setBillStatus)

		admin.GET("/reports/sales", h.salesReport)
		admin.GET("/reports/items", h.itemSalesReport)
		admin.GET("/reports/items/export", h.exportItemSales)
		admin.GET("/reports/analysis", h.analysis)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
			"code":  "INVALID_INPUT",
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
