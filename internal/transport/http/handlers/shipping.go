package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type ShippingUseCases interface {
	Create(ctx context.Context, auth domain.AuthContext, in usecase.CreateShippingInput) domain.Result[domain.Shipping]
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Shipping]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.Shipping]]
	Update(ctx context.Context, auth domain.AuthContext, in usecase.UpdateShippingInput) domain.Result[domain.Shipping]
	Transition(ctx context.Context, auth domain.AuthContext, in usecase.TransitionInput) domain.Result[domain.Shipping]
}

// ShippingHandler serves shipments attached to orders.
type ShippingHandler struct {
	shipping ShippingUseCases
}

func NewShippingHandler(shipping ShippingUseCases) *ShippingHandler {
	return &ShippingHandler{shipping: shipping}
}

func (h *ShippingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.PUT("/:id/status", h.Transition)
}

func (h *ShippingHandler) Create(c *gin.Context) {
	var in usecase.CreateShippingInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.shipping.Create(ctx, middleware.Auth(c), in))
}

func (h *ShippingHandler) Get(c *gin.Context) {
	response.Write(c, h.shipping.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *ShippingHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.shipping.List(c.Request.Context(), middleware.Auth(c), in))
}

func (h *ShippingHandler) Update(c *gin.Context) {
	var in usecase.UpdateShippingInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.shipping.Update(ctx, middleware.Auth(c), in))
}

func (h *ShippingHandler) Transition(c *gin.Context) {
	var in usecase.TransitionInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.shipping.Transition(ctx, middleware.Auth(c), in))
}
