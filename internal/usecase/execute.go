package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/telemetry"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

const internalFailureMessage = "internal error"

// Operation declares one business operation. Checks run in a fixed order:
// identity, permission, input validation, then Run for business rules and writes.
// Transport decode failures count as input validation and surface only after
// the identity and permission checks pass.
type Operation[In, Out any] struct {
	// Name labels logs and metrics, e.g. "order.cancel".
	Name string
	// Public skips the identity check.
	Public bool
	// Require lists permissions that must all be held.
	Require []domain.Permission
	// AnyOf lists permissions of which at least one must be held.
	AnyOf []domain.Permission
	// Validate adds checks beyond the struct tags of In.
	Validate func(In) error
	// Created reports success with status 201.
	Created bool
	Run     func(ctx context.Context, auth domain.AuthContext, in In) (Out, error)
}

// Executor runs operations with shared validation, logging and metrics.
type Executor struct {
	logger   *zap.Logger
	validate *validator.Validate
	outcomes *prometheus.CounterVec
}

// NewExecutor builds an executor. reg may be nil to skip metrics registration.
func NewExecutor(log *zap.Logger, reg prometheus.Registerer) (*Executor, error) {
	if log == nil {
		log = zap.NewNop()
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commerce",
		Subsystem: "usecase",
		Name:      "outcomes_total",
		Help:      "Use case executions partitioned by operation and outcome.",
	}, []string{"operation", "outcome"})

	outcomes, err := telemetry.Register(reg, outcomes)
	if err != nil {
		return nil, fmt.Errorf("outcomes collector: %w", err)
	}

	return &Executor{logger: log, validate: newValidator(), outcomes: outcomes}, nil
}

// Execute runs op for the caller described by auth. It never panics on
// operation errors; every failure is classified into the returned Result.
func Execute[In, Out any](ctx context.Context, exec *Executor, auth domain.AuthContext, in In, op Operation[In, Out]) domain.Result[Out] {
	result := execute(ctx, exec, auth, in, op)
	outcome := "ok"
	if f, failed := result.Failure(); failed {
		outcome = string(f.Kind)
	}
	exec.outcomes.WithLabelValues(op.Name, outcome).Inc()
	return result
}

func execute[In, Out any](ctx context.Context, exec *Executor, auth domain.AuthContext, in In, op Operation[In, Out]) domain.Result[Out] {
	if !op.Public && !auth.IsAuthenticated() {
		return domain.Fail[Out](domain.KindUnauthenticated, "authentication required")
	}

	held := auth.Permissions()
	if len(op.Require) > 0 && !domain.HasRequiredPermissions(op.Require, held) {
		return domain.Fail[Out](domain.KindForbidden, "missing permission "+describePermissions(op.Require, " and "))
	}
	if len(op.AnyOf) > 0 && !domain.HasAnyPermission(op.AnyOf, held) {
		return domain.Fail[Out](domain.KindForbidden, "missing permission "+describePermissions(op.AnyOf, " or "))
	}

	if err := inputProblem(ctx, in); err != nil {
		return domain.Fail[Out](domain.KindValidationFailed, err.Error())
	}
	if err := exec.validateInput(in); err != nil {
		return domain.Fail[Out](domain.KindValidationFailed, err.Error())
	}
	if op.Validate != nil {
		if err := op.Validate(in); err != nil {
			return failure[Out](ctx, exec, op.Name, err, domain.KindValidationFailed)
		}
	}

	out, err := op.Run(ctx, auth, in)
	if err != nil {
		return failure[Out](ctx, exec, op.Name, err, domain.KindInternal)
	}
	if op.Created {
		return domain.Created(out)
	}
	return domain.Ok(out)
}

func (e *Executor) log(ctx context.Context) *zap.Logger {
	return logger.Enrich(ctx, e.logger)
}

// publish emits an event after the write it describes has committed. Delivery
// failures are logged and do not fail the operation.
func (e *Executor) publish(ctx context.Context, event string, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		e.log(ctx).Warn("publish event failed", zap.String("event", event), zap.Error(err))
	}
}

func failure[Out any](ctx context.Context, exec *Executor, operation string, err error, fallback domain.ErrorKind) domain.Result[Out] {
	f := Classify(err, fallback)
	if f.Kind == domain.KindInternal {
		exec.log(ctx).Error("use case failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		f.Message = internalFailureMessage
	}
	return domain.FailWith[Out](f)
}

// Classify maps an error onto the failure taxonomy. Unrecognised errors take
// the fallback kind.
func Classify(err error, fallback domain.ErrorKind) domain.Failure {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return domain.Failure{Kind: de.Kind, Message: de.Message}
	case errors.Is(err, repository.ErrDuplicate):
		return domain.Failure{Kind: domain.KindConflict, Message: "resource already exists"}
	case errors.Is(err, repository.ErrEmptyUpdate):
		return domain.Failure{Kind: domain.KindValidationFailed, Message: "update must change at least one field"}
	case errors.Is(err, repository.ErrProtectedField):
		return domain.Failure{Kind: domain.KindValidationFailed, Message: trimRepositoryPrefix(err)}
	case errors.Is(err, repository.ErrInvalidTransition), errors.Is(err, repository.ErrStatusMismatch):
		return domain.Failure{Kind: domain.KindConflict, Message: trimRepositoryPrefix(err)}
	case errors.Is(err, repository.ErrNotFound):
		return domain.Failure{Kind: domain.KindNotFound, Message: "resource not found"}
	}
	if fallback == "" {
		fallback = domain.KindInternal
	}
	return domain.Failure{Kind: fallback, Message: err.Error()}
}

func trimRepositoryPrefix(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "repository: "); i >= 0 {
		return msg[i+len("repository: "):]
	}
	return msg
}

func describePermissions(perms []domain.Permission, sep string) string {
	parts := make([]string, 0, len(perms))
	for _, p := range perms {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, sep)
}

// permissionsFor builds the permissions of resource for each action.
func permissionsFor(resource domain.Resource, actions ...domain.Action) []domain.Permission {
	out := make([]domain.Permission, 0, len(actions))
	for _, a := range actions {
		out = append(out, domain.GetPermission(resource, a))
	}
	return out
}
