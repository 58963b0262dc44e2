package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

type UserUseCases interface {
	Create(ctx context.Context, auth domain.AuthContext, in usecase.CreateUserInput) domain.Result[domain.User]
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.User]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.User]]
	Update(ctx context.Context, auth domain.AuthContext, in usecase.UpdateUserInput) domain.Result[domain.User]
	Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[usecase.Deleted]
	AssignRoles(ctx context.Context, auth domain.AuthContext, in usecase.AssignRolesInput) domain.Result[domain.User]
}

// UserHandler serves administrative user management.
type UserHandler struct {
	users UserUseCases
}

func NewUserHandler(users UserUseCases) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.PUT("/:id/roles", h.AssignRoles)
}

func (h *UserHandler) Create(c *gin.Context) {
	var in usecase.CreateUserInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.users.Create(ctx, middleware.Auth(c), in))
}

func (h *UserHandler) Get(c *gin.Context) {
	response.Write(c, h.users.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *UserHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.users.List(c.Request.Context(), middleware.Auth(c), in))
}

func (h *UserHandler) Update(c *gin.Context) {
	var in usecase.UpdateUserInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.users.Update(ctx, middleware.Auth(c), in))
}

func (h *UserHandler) Delete(c *gin.Context) {
	response.Write(c, h.users.Delete(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

// AssignRoles replaces the user's role set.
func (h *UserHandler) AssignRoles(c *gin.Context) {
	var in usecase.AssignRolesInput
	ctx := decodeJSON(c, &in)
	in.UserID = c.Param("id")
	response.Write(c, h.users.AssignRoles(ctx, middleware.Auth(c), in))
}
