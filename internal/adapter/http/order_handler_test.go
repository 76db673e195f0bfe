package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/aq2208/gcommerce-api/internal/adapter/http"
	"github.com/aq2208/gcommerce-api/internal/adapter/http/middleware"
	"github.com/aq2208/gcommerce-api/internal/adapter/memrepo"
	"github.com/aq2208/gcommerce-api/internal/domain"
	"github.com/aq2208/gcommerce-api/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	products *memrepo.ProductRepo
	engine   *gin.Engine
}

// newEnv wires the handler behind a fixed user id, standing in for the
// token middleware.
func newEnv(t *testing.T, userID int64) *env {
	t.Helper()
	s := memrepo.New()
	products := memrepo.NewProductRepo(s)
	orders := memrepo.NewOrderRepo(s)
	place := usecase.NewPlaceOrder(s, products, orders, nil, nil)
	queries := usecase.NewOrderQueries(orders, nil)
	h := apihttp.NewOrderHandler(place, queries)

	e := gin.New()
	e.Use(func(c *gin.Context) { c.Set(middleware.UserIDKey, userID) })
	e.POST("/v1/orders", h.PlaceOrder)
	e.GET("/v1/orders", h.ListOrders)
	e.GET("/v1/orders/:id", h.GetOrderByID)
	return &env{products: products, engine: e}
}

func (e *env) seed(t *testing.T, name string, price int64, stock int) int64 {
	t.Helper()
	m, err := domain.NewMoney(price)
	require.NoError(t, err)
	st, err := domain.NewStock(stock)
	require.NoError(t, err)
	p, err := e.products.Save(context.Background(), domain.NewProduct(1, name, m, st))
	require.NoError(t, err)
	return p.ID()
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrderEndpoint(t *testing.T) {
	e := newEnv(t, 7)
	keyboard := e.seed(t, "Keyboard", 10000, 100)
	monitor := e.seed(t, "Monitor", 20000, 50)

	rec := e.do(t, nethttp.MethodPost, "/v1/orders", gin.H{
		"items": []gin.H{
			{"productId": keyboard, "quantity": 2},
			{"productId": monitor, "quantity": 1},
		},
	})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())

	var got struct {
		ID         int64  `json:"id"`
		UserID     int64  `json:"userId"`
		TotalPrice int64  `json:"totalPrice"`
		Status     string `json:"status"`
		Items      []struct {
			ProductID int64 `json:"productId"`
			Quantity  int   `json:"quantity"`
			Subtotal  int64 `json:"subtotal"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotZero(t, got.ID)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, int64(40000), got.TotalPrice)
	assert.Equal(t, "CREATED", got.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(20000), got.Items[0].Subtotal)
}

func TestPlaceOrderEndpointInsufficientStock(t *testing.T) {
	e := newEnv(t, 7)
	id := e.seed(t, "Keyboard", 10000, 5)

	rec := e.do(t, nethttp.MethodPost, "/v1/orders", gin.H{
		"items": []gin.H{{"productId": id, "quantity": 10}},
	})
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)

	var got struct {
		Error     string `json:"error"`
		ProductID int64  `json:"productId"`
		Requested int    `json:"requested"`
		Available int    `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "insufficient_stock", got.Error)
	assert.Equal(t, id, got.ProductID)
	assert.Equal(t, 10, got.Requested)
	assert.Equal(t, 5, got.Available)
}

func TestPlaceOrderEndpointValidation(t *testing.T) {
	e := newEnv(t, 7)
	id := e.seed(t, "Keyboard", 10000, 5)

	for name, body := range map[string]gin.H{
		"no items":          {"items": []gin.H{}},
		"zero quantity":     {"items": []gin.H{{"productId": id, "quantity": 0}}},
		"negative quantity": {"items": []gin.H{{"productId": id, "quantity": -1}}},
		"missing product":   {"items": []gin.H{{"quantity": 1}}},
		"missing quantity":  {"items": []gin.H{{"productId": id}}},
	} {
		rec := e.do(t, nethttp.MethodPost, "/v1/orders", body)
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code, name)
	}
}

func TestPlaceOrderEndpointUnknownProduct(t *testing.T) {
	e := newEnv(t, 7)

	rec := e.do(t, nethttp.MethodPost, "/v1/orders", gin.H{
		"items": []gin.H{{"productId": 999, "quantity": 1}},
	})
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "product_not_found")
}

func TestGetOrderEndpoint(t *testing.T) {
	e := newEnv(t, 7)
	id := e.seed(t, "Keyboard", 10000, 100)

	rec := e.do(t, nethttp.MethodPost, "/v1/orders", gin.H{
		"items": []gin.H{{"productId": id, "quantity": 1}},
	})
	require.Equal(t, nethttp.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = e.do(t, nethttp.MethodGet, fmt.Sprintf("/v1/orders/%d", created.ID), nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = e.do(t, nethttp.MethodGet, "/v1/orders/9999", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "order_not_found")

	rec = e.do(t, nethttp.MethodGet, "/v1/orders/not-a-number", nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestListOrdersEndpoint(t *testing.T) {
	e := newEnv(t, 7)
	id := e.seed(t, "Keyboard", 10000, 100)
	for i := 0; i < 3; i++ {
		rec := e.do(t, nethttp.MethodPost, "/v1/orders", gin.H{
			"items": []gin.H{{"productId": id, "quantity": 1}},
		})
		require.Equal(t, nethttp.StatusCreated, rec.Code)
	}

	rec := e.do(t, nethttp.MethodGet, "/v1/orders?offset=0&limit=2", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var got struct {
		Orders []json.RawMessage `json:"orders"`
		Total  int64             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Orders, 2)
	assert.Equal(t, int64(3), got.Total)
}
