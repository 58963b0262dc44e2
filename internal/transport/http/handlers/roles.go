package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type RoleUseCases interface {
	Create(ctx context.Context, auth domain.AuthContext, in usecase.CreateRoleInput) domain.Result[domain.Role]
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Role]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.Role]]
	Update(ctx context.Context, auth domain.AuthContext, in usecase.UpdateRoleInput) domain.Result[domain.Role]
	Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[usecase.Deleted]
}

type RoleHandler struct {
	roles RoleUseCases
}

func NewRoleHandler(roles RoleUseCases) *RoleHandler {
	return &RoleHandler{roles: roles}
}

func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

func (h *RoleHandler) Create(c *gin.Context) {
	var in usecase.CreateRoleInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.roles.Create(ctx, middleware.Auth(c), in))
}

func (h *RoleHandler) Get(c *gin.Context) {
	response.Write(c, h.roles.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *RoleHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.roles.List(c.Request.Context(), middleware.Auth(c), in))
}

// Update changes the description or permission set. Cached permissions of role holders are dropped.
func (h *RoleHandler) Update(c *gin.Context) {
	var in usecase.UpdateRoleInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.roles.Update(ctx, middleware.Auth(c), in))
}

func (h *RoleHandler) Delete(c *gin.Context) {
	response.Write(c, h.roles.Delete(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}
