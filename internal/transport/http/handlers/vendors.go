package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type VendorUseCases interface {
	Create(ctx context.Context, auth domain.AuthContext, in usecase.CreateVendorInput) domain.Result[domain.Vendor]
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Vendor]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.Vendor]]
	Update(ctx context.Context, auth domain.AuthContext, in usecase.UpdateVendorInput) domain.Result[domain.Vendor]
	Verify(ctx context.Context, auth domain.AuthContext, in usecase.VerifyVendorInput) domain.Result[domain.Vendor]
	Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[usecase.Deleted]
}

// VendorHandler serves vendor store profiles.
type VendorHandler struct {
	vendors VendorUseCases
}

func NewVendorHandler(vendors VendorUseCases) *VendorHandler {
	return &VendorHandler{vendors: vendors}
}

func (h *VendorHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.PUT("/:id/verification", h.Verify)
	r.DELETE("/:id", h.Delete)
}

// Create opens a store owned by the caller.
func (h *VendorHandler) Create(c *gin.Context) {
	var in usecase.CreateVendorInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.vendors.Create(ctx, middleware.Auth(c), in))
}

func (h *VendorHandler) Get(c *gin.Context) {
	response.Write(c, h.vendors.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *VendorHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.vendors.List(c.Request.Context(), middleware.Auth(c), in))
}

func (h *VendorHandler) Update(c *gin.Context) {
	var in usecase.UpdateVendorInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.vendors.Update(ctx, middleware.Auth(c), in))
}

func (h *VendorHandler) Verify(c *gin.Context) {
	var in usecase.VerifyVendorInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.vendors.Verify(ctx, middleware.Auth(c), in))
}

func (h *VendorHandler) Delete(c *gin.Context) {
	response.Write(c, h.vendors.Delete(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}
