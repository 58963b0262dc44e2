package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// IDInput addresses one record.
type IDInput struct {
	ID string `json:"id" validate:"required"`
}

// TransitionInput requests a status change.
type TransitionInput struct {
	ID     string        `json:"id" validate:"required"`
	Status domain.Status `json:"status" validate:"required"`
	Reason string        `json:"reason" validate:"max=500"`
}

// Deleted reports the outcome of a delete.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func now() time.Time { return time.Now().UTC() }

// findScoped loads id and hides records the caller may not see.
func findScoped[T any](ctx context.Context, repo port.Repository[T], resource domain.Resource, id string, visible func(*T) bool) (*T, error) {
	entity, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil || (visible != nil && !visible(entity)) {
		return nil, notFound(resource, id)
	}
	return entity, nil
}

// transition moves id from its current status to to, recording actor and reason.
func transition[T any](ctx context.Context, repo port.StatusRepository[T], table domain.Transitions, resource domain.Resource, id string, from, to domain.Status, actor, reason string) (*T, error) {
	if !table.Knows(to) {
		return nil, domain.ValidationError("unknown %s status %q", resource, to)
	}
	if !table.Allows(from, to) {
		return nil, domain.ConflictError("cannot move %s from %s to %s", resource, from, to)
	}
	updated, err := repo.TransitionStatus(ctx, id, from, to, domain.StatusChange{
		ChangedAt: now(),
		ChangedBy: actor,
		Reason:    reason,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, domain.ConflictError("%s %s changed status concurrently", resource, id)
		}
		return nil, fmt.Errorf("transition %s: %w", resource, err)
	}
	if updated == nil {
		return nil, notFound(resource, id)
	}
	return updated, nil
}

func statusChanged(resource domain.Resource, id string, from, to domain.Status, actor, reason string) domain.StatusChangedEvent {
	return domain.StatusChangedEvent{
		EventID:   uuid.NewString(),
		Entity:    resource,
		EntityID:  id,
		From:      from,
		To:        to,
		Reason:    reason,
		Actor:     actor,
		ChangedAt: now(),
	}
}

// setIf adds field to patch when value is non-nil.
func setIf[V any](patch domain.Patch, field string, value *V) {
	if value != nil {
		patch[field] = *value
	}
}

type discardEvents struct{}

func (discardEvents) PublishUserRegistered(context.Context, domain.UserRegisteredEvent) error {
	return nil
}
func (discardEvents) PublishOrderPlaced(context.Context, domain.OrderPlacedEvent) error { return nil }
func (discardEvents) PublishStatusChanged(context.Context, domain.StatusChangedEvent) error {
	return nil
}
func (discardEvents) PublishRoleUpdated(context.Context, domain.RoleUpdatedEvent) error { return nil }

func eventsOrDiscard(p port.EventPublisher) port.EventPublisher {
	if p == nil {
		return discardEvents{}
	}
	return p
}
