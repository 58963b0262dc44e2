package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type OrderUseCases interface {
	Place(ctx context.Context, auth domain.AuthContext, in usecase.PlaceOrderInput) domain.Result[domain.Order]
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Order]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.Order]]
	Cancel(ctx context.Context, auth domain.AuthContext, in usecase.CancelOrderInput) domain.Result[domain.Order]
	Transition(ctx context.Context, auth domain.AuthContext, in usecase.TransitionInput) domain.Result[domain.Order]
	Invoice(ctx context.Context, auth domain.AuthContext, id string) domain.Result[usecase.Invoice]
}

// OrderHandler serves checkout and order lifecycle endpoints.
type OrderHandler struct {
	orders OrderUseCases
}

func NewOrderHandler(orders OrderUseCases) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes mounts the order endpoints. checkoutLimit may be nil.
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup, checkoutLimit gin.HandlerFunc) {
	r.POST("", chain(checkoutLimit, h.Place)...)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.POST("/:id/cancel", h.Cancel)
	r.PUT("/:id/status", h.Transition)
	r.GET("/:id/invoice", h.Invoice)
}

// Place creates the order and its pending payment.
// POST /api/v1/orders
func (h *OrderHandler) Place(c *gin.Context) {
	var in usecase.PlaceOrderInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.orders.Place(ctx, middleware.Auth(c), in))
}

func (h *OrderHandler) Get(c *gin.Context) {
	response.Write(c, h.orders.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *OrderHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.orders.List(c.Request.Context(), middleware.Auth(c), in))
}

// Cancel cancels a pending order.
// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	var in usecase.CancelOrderInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.orders.Cancel(ctx, middleware.Auth(c), in))
}

func (h *OrderHandler) Transition(c *gin.Context) {
	var in usecase.TransitionInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.orders.Transition(ctx, middleware.Auth(c), in))
}

// Invoice streams the order invoice as a PDF attachment.
// GET /api/v1/orders/:id/invoice
func (h *OrderHandler) Invoice(c *gin.Context) {
	result := h.orders.Invoice(c.Request.Context(), middleware.Auth(c), c.Param("id"))
	if f, failed := result.Failure(); failed {
		response.Fail(c, f)
		return
	}

	invoice := result.Value()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", invoice.Filename))
	c.Data(http.StatusOK, "application/pdf", invoice.Content)
}
