package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type PaymentUseCases interface {
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Payment]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.Payment]]
	Transition(ctx context.Context, auth domain.AuthContext, in usecase.TransitionInput) domain.Result[domain.Payment]
}

type PaymentHandler struct {
	payments PaymentUseCases
}

func NewPaymentHandler(payments PaymentUseCases) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PUT("/:id/status", h.Transition)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	response.Write(c, h.payments.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *PaymentHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.payments.List(c.Request.Context(), middleware.Auth(c), in))
}

// Transition moves the payment along its lifecycle, e.g. PENDING to COMPLETED.
func (h *PaymentHandler) Transition(c *gin.Context) {
	var in usecase.TransitionInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.payments.Transition(ctx, middleware.Auth(c), in))
}
