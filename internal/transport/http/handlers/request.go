package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

// Reserved list query parameters. Every other parameter is treated as an equality filter.
const (
	queryPage      = "page"
	queryLimit     = "limit"
	querySortBy    = "sort_by"
	querySortOrder = "sort_order"
	querySearch    = "search"
)

// ParseListInput reads pagination, sorting, search and filters from the query
// string. Unparseable pagination is recorded on Problems and rejected by the use
// case after the caller's identity and permissions are checked.
func ParseListInput(c *gin.Context) usecase.ListInput {
	in := usecase.ListInput{
		Search:    strings.TrimSpace(c.Query(querySearch)),
		SortBy:    strings.TrimSpace(c.Query(querySortBy)),
		SortOrder: strings.ToLower(strings.TrimSpace(c.Query(querySortOrder))),
	}

	var problem string
	if in.Page, problem = intQuery(c, queryPage); problem != "" {
		in.Problems = append(in.Problems, problem)
	}
	if in.Limit, problem = intQuery(c, queryLimit); problem != "" {
		in.Problems = append(in.Problems, problem)
	}

	for key, values := range c.Request.URL.Query() {
		switch key {
		case queryPage, queryLimit, querySortBy, querySortOrder, querySearch:
			continue
		}
		if len(values) == 0 || values[0] == "" {
			continue
		}
		if in.Filters == nil {
			in.Filters = make(map[string]string)
		}
		in.Filters[key] = values[0]
	}

	return in
}

func intQuery(c *gin.Context, key string) (int, string) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, key + " must be an integer"
	}
	if n < 1 {
		return 0, key + " must be at least 1"
	}
	return n, ""
}

// decodeJSON decodes the request body into dst and returns the request context.
// An empty body leaves dst unchanged; a malformed one is attached to the context
// so the use case rejects it after its identity and permission checks.
func decodeJSON(c *gin.Context, dst any) context.Context {
	ctx := c.Request.Context()
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return usecase.WithDecodeError(ctx, errors.New("invalid request body"))
	}
	return ctx
}
