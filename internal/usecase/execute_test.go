package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

type echoInput struct {
	Name string `json:"name" validate:"required"`
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	exec, err := NewExecutor(zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec
}

func echoOperation(ran *bool) Operation[echoInput, string] {
	return Operation[echoInput, string]{
		Name:    "test.echo",
		Require: []domain.Permission{domain.GetPermission(domain.ResourceOrder, domain.ActionCreate)},
		Run: func(_ context.Context, _ domain.AuthContext, in echoInput) (string, error) {
			*ran = true
			return in.Name, nil
		},
	}
}

func TestExecute_CheckOrder(t *testing.T) {
	exec := newTestExecutor(t)
	holder := domain.NewAuthContext("u1", "", nil, []domain.Permission{"order:create"})
	stranger := domain.NewAuthContext("u2", "", nil, []domain.Permission{"order:view"})

	tests := []struct {
		name string
		auth domain.AuthContext
		in   echoInput
		kind domain.ErrorKind
	}{
		{name: "anonymous with invalid input", auth: domain.Anonymous(), in: echoInput{}, kind: domain.KindUnauthenticated},
		{name: "missing permission with invalid input", auth: stranger, in: echoInput{}, kind: domain.KindForbidden},
		{name: "permitted with invalid input", auth: holder, in: echoInput{}, kind: domain.KindValidationFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			res := Execute(context.Background(), exec, tc.auth, tc.in, echoOperation(&ran))
			mustFail(t, res, tc.kind)
			if ran {
				t.Fatal("Run must not execute when a check fails")
			}
		})
	}
}

func TestExecute_TransportProblemsFollowAccessChecks(t *testing.T) {
	exec := newTestExecutor(t)
	holder := domain.NewAuthContext("u1", "", nil, []domain.Permission{"order:create"})
	stranger := domain.NewAuthContext("u2", "", nil, []domain.Permission{"order:view"})
	undecodable := WithDecodeError(context.Background(), errors.New("invalid request body"))

	for _, tc := range []struct {
		name string
		auth domain.AuthContext
		kind domain.ErrorKind
	}{
		{"anonymous", domain.Anonymous(), domain.KindUnauthenticated},
		{"unpermitted", stranger, domain.KindForbidden},
		{"permitted", holder, domain.KindValidationFailed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			res := Execute(undecodable, exec, tc.auth, echoInput{Name: "set"}, echoOperation(&ran))
			f := mustFail(t, res, tc.kind)
			if tc.kind == domain.KindValidationFailed && f.Message != "invalid request body" {
				t.Fatalf("unexpected message %q", f.Message)
			}
			if ran {
				t.Fatal("Run must not execute")
			}
		})
	}

	list := Operation[ListInput, int]{
		Name:    "test.list",
		Require: []domain.Permission{"order:view"},
		Run:     func(context.Context, domain.AuthContext, ListInput) (int, error) { return 0, nil },
	}
	bad := ListInput{Problems: []string{"page must be at least 1"}}
	mustFail(t, Execute(context.Background(), exec, holder, bad, list), domain.KindForbidden)
	f := mustFail(t, Execute(context.Background(), exec, stranger, bad, list), domain.KindValidationFailed)
	if f.Message != "page must be at least 1" {
		t.Fatalf("unexpected message %q", f.Message)
	}
}

func TestExecute_WildcardPermissionSatisfiesRequirement(t *testing.T) {
	exec := newTestExecutor(t)
	auth := domain.NewAuthContext("u1", "", nil, []domain.Permission{"order:*"})

	ran := false
	res := Execute(context.Background(), exec, auth, echoInput{Name: "ok"}, echoOperation(&ran))
	if got := mustOk(t, res); got != "ok" || !ran {
		t.Fatalf("expected Run to return ok, got %q ran=%v", got, ran)
	}
	if res.Status() != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Status())
	}
}

func TestExecute_ForbiddenMessageNamesPermission(t *testing.T) {
	exec := newTestExecutor(t)
	ran := false
	res := Execute(context.Background(), exec, domain.NewAuthContext("u1", "", nil, nil), echoInput{Name: "x"}, echoOperation(&ran))
	f := mustFail(t, res, domain.KindForbidden)
	if !strings.Contains(f.Message, "order:create") {
		t.Fatalf("expected message to name order:create, got %q", f.Message)
	}
	if f.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", f.Status)
	}
}

func TestExecute_PublicOperationSkipsIdentity(t *testing.T) {
	exec := newTestExecutor(t)
	res := Execute(context.Background(), exec, domain.Anonymous(), echoInput{Name: "hi"}, Operation[echoInput, string]{
		Name:    "test.public",
		Public:  true,
		Created: true,
		Run: func(_ context.Context, _ domain.AuthContext, in echoInput) (string, error) {
			return in.Name, nil
		},
	})
	mustOk(t, res)
	if res.Status() != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Status())
	}
}

func TestExecute_AnyOf(t *testing.T) {
	exec := newTestExecutor(t)
	op := Operation[echoInput, string]{
		Name:  "test.any",
		AnyOf: permissionsFor(domain.ResourceOrder, domain.ActionView, domain.ActionViewOwn),
		Run: func(_ context.Context, _ domain.AuthContext, in echoInput) (string, error) {
			return in.Name, nil
		},
	}
	own := domain.NewAuthContext("u1", "", nil, []domain.Permission{"order:view_own"})
	mustOk(t, Execute(context.Background(), exec, own, echoInput{Name: "a"}, op))

	none := domain.NewAuthContext("u1", "", nil, []domain.Permission{"product:view"})
	f := mustFail(t, Execute(context.Background(), exec, none, echoInput{Name: "a"}, op), domain.KindForbidden)
	if !strings.Contains(f.Message, "order:view or order:view_own") {
		t.Fatalf("unexpected message %q", f.Message)
	}
}

func TestExecute_ClassifiesRunErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind domain.ErrorKind
	}{
		{name: "duplicate", err: fmt.Errorf("insert users: %w", repository.ErrDuplicate), kind: domain.KindConflict},
		{name: "empty update", err: repository.ErrEmptyUpdate, kind: domain.KindValidationFailed},
		{name: "protected field", err: fmt.Errorf("%w: status", repository.ErrProtectedField), kind: domain.KindValidationFailed},
		{name: "status mismatch", err: repository.ErrStatusMismatch, kind: domain.KindConflict},
		{name: "not found", err: repository.ErrNotFound, kind: domain.KindNotFound},
		{name: "domain error", err: fmt.Errorf("wrapped: %w", domain.ConflictError("taken")), kind: domain.KindConflict},
		{name: "unexpected", err: errors.New("connection reset"), kind: domain.KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := newTestExecutor(t)
			res := Execute(context.Background(), exec, domain.Anonymous(), echoInput{Name: "x"}, Operation[echoInput, string]{
				Name:   "test.fail",
				Public: true,
				Run: func(context.Context, domain.AuthContext, echoInput) (string, error) {
					return "", tc.err
				},
			})
			f := mustFail(t, res, tc.kind)
			if tc.kind == domain.KindInternal && f.Message != internalFailureMessage {
				t.Fatalf("internal failures must hide details, got %q", f.Message)
			}
			if got := testutil.ToFloat64(exec.outcomes.WithLabelValues("test.fail", string(tc.kind))); got != 1 {
				t.Fatalf("expected one %s outcome, got %v", tc.kind, got)
			}
		})
	}
}

func TestExecute_StructLevelOrderRules(t *testing.T) {
	exec := newTestExecutor(t)
	auth := customerAuth("u1")
	op := Operation[PlaceOrderInput, string]{
		Name:    "test.order",
		Require: permissionsFor(domain.ResourceOrder, domain.ActionCreate),
		Run: func(context.Context, domain.AuthContext, PlaceOrderInput) (string, error) {
			return "placed", nil
		},
	}

	badLine := PlaceOrderInput{
		Items:    []domain.OrderItem{{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: 500, TotalPrice: 900}},
		Total:    900,
		Currency: "USD",
	}
	f := mustFail(t, Execute(context.Background(), exec, auth, badLine, op), domain.KindValidationFailed)
	if !strings.Contains(f.Message, "items[0].totalPrice") {
		t.Fatalf("expected line total failure, got %q", f.Message)
	}

	badTotal := PlaceOrderInput{
		Items:    []domain.OrderItem{{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: 500, Discount: 100, TotalPrice: 900}},
		Total:    1000,
		Currency: "USD",
	}
	f = mustFail(t, Execute(context.Background(), exec, auth, badTotal, op), domain.KindValidationFailed)
	if !strings.Contains(f.Message, "total must equal the sum of item totals (900)") {
		t.Fatalf("expected order total failure, got %q", f.Message)
	}

	good := badTotal
	good.Total = 900
	mustOk(t, Execute(context.Background(), exec, auth, good, op))
}

func TestNewExecutor_ReusesRegisteredCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewExecutor(zap.NewNop(), reg)
	if err != nil {
		t.Fatalf("first NewExecutor: %v", err)
	}
	second, err := NewExecutor(zap.NewNop(), reg)
	if err != nil {
		t.Fatalf("second NewExecutor: %v", err)
	}
	if first.outcomes != second.outcomes {
		t.Fatal("expected the registered collector to be shared")
	}
}
