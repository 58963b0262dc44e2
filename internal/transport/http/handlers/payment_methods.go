package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type PaymentMethodUseCases interface {
	Create(ctx context.Context, auth domain.AuthContext, in usecase.CreatePaymentMethodInput) domain.Result[domain.PaymentMethod]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.PaymentMethod]]
	Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[usecase.Deleted]
	SetDefault(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.PaymentMethod]
}

// PaymentMethodHandler serves the caller's saved payment methods.
type PaymentMethodHandler struct {
	methods PaymentMethodUseCases
}

func NewPaymentMethodHandler(methods PaymentMethodUseCases) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods}
}

func (h *PaymentMethodHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.DELETE("/:id", h.Delete)
	r.PUT("/:id/default", h.SetDefault)
}

func (h *PaymentMethodHandler) Create(c *gin.Context) {
	var in usecase.CreatePaymentMethodInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.methods.Create(ctx, middleware.Auth(c), in))
}

func (h *PaymentMethodHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.methods.List(c.Request.Context(), middleware.Auth(c), in))
}

func (h *PaymentMethodHandler) Delete(c *gin.Context) {
	response.Write(c, h.methods.Delete(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

// SetDefault marks the method as the caller's default and clears the flag on the others.
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	response.Write(c, h.methods.SetDefault(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}
