package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"product-order-service/internal/broker"
	"product-order-service/internal/models"
	"product-order-service/internal/service"
	"product-order-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog      *service.ProductCatalog
	orderService *service.OrderService
	projector    *service.EventProjector
	events       *broker.EventHandler
	subscription models.Subscription
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.ProductCatalog,
	orderService *service.OrderService,
	projector *service.EventProjector,
	events *broker.EventHandler,
	subscription models.Subscription,
) *Handler {
	return &Handler{
		catalog:      catalog,
		orderService: orderService,
		projector:    projector,
		events:       events,
		subscription: subscription,
		logger:       util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/dapr/subscribe", h.subscriptions)
	router.POST(h.subscription.Route, h.handleProductEvent)

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.POST("/products", h.createProduct)
		api.GET("/products/:id", h.getProduct)
		api.PUT("/products/:id", h.updateProduct)
		api.DELETE("/products/:id", h.deleteProduct)

		api.GET("/orders", h.listOrders)
		api.POST("/orders", h.createOrder)
		api.GET("/orders/cache/stats", h.cacheStats)
		api.GET("/orders/:id", h.getOrder)
		api.PUT("/orders/:id", h.updateOrder)
		api.DELETE("/orders/:id", h.deleteOrder)

		api.GET("/events/stats", h.projectionStats)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// subscriptions returns the pub/sub subscription descriptor
func (h *Handler) subscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, []models.Subscription{h.subscription})
}

// handleProductEvent projects one delivered envelope
func (h *Handler) handleProductEvent(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.events.HandleEnvelope(c.Request.Context(), payload); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) projectionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.projector.Stats()})
}

func (h *Handler) listProducts(c *gin.Context) {
	products := h.catalog.FindAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"count":   len(products),
	})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	req, err := service.ValidateCreateProduct(req)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		respondMutationError(c, err, product)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": product})
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	req, err := service.ValidateUpdateProduct(req)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.catalog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondMutationError(c, err, product)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	product, err := h.catalog.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMutationError(c, err, product)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

func (h *Handler) listOrders(c *gin.Context) {
	orders := h.orderService.FindAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"data":  orders,
		"count": len(orders),
	})
}

func (h *Handler) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.orderService.CacheStats()})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orderService.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	req, err := service.ValidateCreateOrder(req)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data":    order,
	})
}

func (h *Handler) updateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	req, err := service.ValidateUpdateOrder(req)
	if err != nil {
		respondError(c, err)
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	if _, err := h.orderService.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// respondMutationError reports a catalog failure. A publish failure still
// carries the product, since the mutation was applied.
func respondMutationError(c *gin.Context, err error, product models.Product) {
	if errors.Is(err, models.ErrPublishFailure) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Product saved but event publish failed",
			"details": err.Error(),
			"data":    product,
		})
		return
	}
	respondError(c, err)
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
