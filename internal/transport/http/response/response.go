package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// TraceIDKey is the gin context key holding the request trace identifier.
const TraceIDKey = "trace_id"

// Envelope wraps a successful single-value payload.
type Envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// ListEnvelope wraps a page of entities with its pagination metadata inlined.
type ListEnvelope[T any] struct {
	Success bool `json:"success"`
	domain.QueryResult[T]
}

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorBody builds the failure payload for f, tagging it with the request trace id.
func NewErrorBody(c *gin.Context, f domain.Failure) ErrorBody {
	kind := f.Kind
	if kind == "" {
		kind = domain.KindInternal
	}
	return ErrorBody{
		Success: false,
		Error:   f.Message,
		Code:    string(kind),
		TraceID: c.GetString(TraceIDKey),
	}
}

// Write renders a single-value result.
func Write[T any](c *gin.Context, r domain.Result[T]) {
	if f, failed := r.Failure(); failed {
		Fail(c, f)
		return
	}
	c.JSON(r.Status(), Envelope[T]{Success: true, Data: r.Value()})
}

// WriteList renders a paginated result.
func WriteList[T any](c *gin.Context, r domain.Result[domain.QueryResult[T]]) {
	if f, failed := r.Failure(); failed {
		Fail(c, f)
		return
	}
	page := r.Value()
	if page.Data == nil {
		page.Data = []T{}
	}
	c.JSON(r.Status(), ListEnvelope[T]{Success: true, QueryResult: page})
}

// Fail renders f and stops the handler chain.
func Fail(c *gin.Context, f domain.Failure) {
	status := f.Status
	if status == 0 {
		status = f.Kind.Status()
	}
	c.AbortWithStatusJSON(status, NewErrorBody(c, f))
}

// BadRequest renders a validation failure with message.
func BadRequest(c *gin.Context, message string) {
	Fail(c, domain.Failure{Kind: domain.KindValidationFailed, Message: message, Status: http.StatusBadRequest})
}
