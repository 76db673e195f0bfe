package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aq2208/gcommerce-api/internal/adapter/http/middleware"
	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	place   *usecase.PlaceOrder
	queries *usecase.OrderQueries
}

func NewOrderHandler(place *usecase.PlaceOrder, queries *usecase.OrderQueries) *OrderHandler {
	return &OrderHandler{place: place, queries: queries}
}

type placeOrderReq struct {
	Items []struct {
		ProductID int64 `json:"productId" binding:"required"`
		Quantity  int   `json:"quantity" binding:"required,gte=1"`
	} `json:"items" binding:"required,dive"`
}

type orderItemView struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"productId"`
	ProductName   string `json:"productName"`
	Quantity      int    `json:"quantity"`
	PriceSnapshot int64  `json:"priceSnapshot"`
	Subtotal      int64  `json:"subtotal"`
}

type orderView struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Items      []orderItemView `json:"items"`
	TotalPrice int64           `json:"totalPrice"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toOrderView(o *domain.Order) orderView {
	items := o.Items()
	views := make([]orderItemView, len(items))
	for i, it := range items {
		views[i] = orderItemView{
			ID:            it.ID(),
			ProductID:     it.ProductID(),
			ProductName:   it.ProductName(),
			Quantity:      it.Quantity(),
			PriceSnapshot: it.PriceSnapshot().Amount(),
			Subtotal:      it.Subtotal().Amount(),
		}
	}
	return orderView{
		ID:         o.ID(),
		UserID:     o.UserID(),
		Items:      views,
		TotalPrice: o.TotalPrice().Amount(),
		Status:     string(o.Status()),
		CreatedAt:  o.CreatedAt(),
	}
}

// PlaceOrder handler: translate the request into workflow input.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	lines := make([]usecase.OrderLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = usecase.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.place.Execute(ctx, usecase.PlaceOrderInput{
		UserID:         c.GetInt64(middleware.UserIDKey),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"), // dedupe retried requests
		Lines:          lines,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderView(order))
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	order, err := h.queries.Get(ctx, id, c.GetInt64(middleware.UserIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	userID := c.GetInt64(middleware.UserIDKey)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	orders, err := h.queries.List(ctx, userID, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	total, err := h.queries.Count(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]orderView, len(orders))
	for i, o := range orders {
		views[i] = toOrderView(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": views, "total": total})
}

// writeError maps the domain error taxonomy onto HTTP responses,
// carrying the diagnostic payload where one exists.
func writeError(c *gin.Context, err error) {
	var ins *domain.InsufficientStockError
	if errors.As(err, &ins) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_stock",
			"productId": ins.ProductID,
			"requested": ins.Requested,
			"available": ins.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": err.Error()})
	case errors.Is(err, domain.ErrProductDeleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_deleted", "detail": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found", "detail": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.Is(err, usecase.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request"})
	case errors.Is(err, domain.ErrLockWaitTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lock_timeout"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
