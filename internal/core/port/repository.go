package port

import (
	"context"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// Repository is the uniform data-access contract shared by every entity.
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) (*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, filter domain.Filter) (*T, error)
	Update(ctx context.Context, id string, patch domain.Patch) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, filter domain.Filter) (int64, error)
	Query(ctx context.Context, q domain.QueryFilters) (*domain.QueryResult[T], error)
}

// StatusRepository adds guarded status transitions for status-bearing entities.
type StatusRepository[T any] interface {
	Repository[T]
	TransitionStatus(ctx context.Context, id string, from, to domain.Status, change domain.StatusChange) (*T, error)
}
