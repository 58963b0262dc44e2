package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterStructValidation(validateOrderItem, domain.OrderItem{})
	v.RegisterStructValidation(validatePlaceOrder, PlaceOrderInput{})
	return v
}

func validateOrderItem(sl validator.StructLevel) {
	item := sl.Current().Interface().(domain.OrderItem)
	if item.TotalPrice != item.LineTotal() {
		sl.ReportError(item.TotalPrice, "totalPrice", "TotalPrice", "line_total", fmt.Sprint(item.LineTotal()))
	}
}

func validatePlaceOrder(sl validator.StructLevel) {
	in := sl.Current().Interface().(PlaceOrderInput)
	var sum int64
	for _, item := range in.Items {
		sum += item.TotalPrice
	}
	if in.Total != sum {
		sl.ReportError(in.Total, "total", "Total", "order_total", fmt.Sprint(sum))
	}
}

// requireChange rejects a patch input whose optional fields are all unset.
func requireChange(set ...bool) error {
	if slices.Contains(set, true) {
		return nil
	}
	return repository.ErrEmptyUpdate
}

type decodeErrorKey struct{}

// WithDecodeError marks ctx as carrying an input the transport failed to decode.
// The operation run under ctx fails validation with err once the caller is
// authenticated and authorised.
func WithDecodeError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return context.WithValue(ctx, decodeErrorKey{}, err)
}

// DecodeError returns the error attached by WithDecodeError.
func DecodeError(ctx context.Context) error {
	err, _ := ctx.Value(decodeErrorKey{}).(error)
	return err
}

// problemReporter is implemented by inputs that record their own parse failures.
type problemReporter interface {
	Problem() error
}

func inputProblem(ctx context.Context, in any) error {
	if err := DecodeError(ctx); err != nil {
		return err
	}
	if r, ok := in.(problemReporter); ok {
		return r.Problem()
	}
	return nil
}

// validateInput runs struct-tag and struct-level rules when in is a struct.
func (e *Executor) validateInput(in any) error {
	v := reflect.ValueOf(in)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := e.validate.Struct(v.Interface()); err != nil {
		return errors.New(describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, describeField(f))
	}
	return strings.Join(parts, "; ")
}

func describeField(f validator.FieldError) string {
	name := f.Namespace()
	if _, rest, ok := strings.Cut(name, "."); ok {
		name = rest
	}
	switch f.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", name, f.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", name, f.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", name, f.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, f.Param())
	case "line_total":
		return fmt.Sprintf("%s must equal unitPrice*quantity-discount (%s)", name, f.Param())
	case "order_total":
		return fmt.Sprintf("%s must equal the sum of item totals (%s)", name, f.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, f.Tag())
	}
}
