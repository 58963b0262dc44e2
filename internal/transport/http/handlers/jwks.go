package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
)

const jwksCacheControl = "public, max-age=3600"

// KeySet renders the public signing keys as a JSON Web Key Set.
type KeySet interface {
	JWKS() ([]byte, error)
}

// JWKSHandler publishes the keys used to verify access tokens.
type JWKSHandler struct {
	keys KeySet
}

func NewJWKSHandler(keys KeySet) *JWKSHandler {
	return &JWKSHandler{keys: keys}
}

// Keys serves the key set.
// GET /.well-known/jwks.json
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.keys == nil {
		response.Fail(c, domain.Failure{Kind: domain.KindInternal, Message: "jwks not available", Status: http.StatusServiceUnavailable})
		return
	}

	payload, err := h.keys.JWKS()
	if err != nil {
		response.Fail(c, domain.Failure{Kind: domain.KindInternal, Message: "failed to render jwks"})
		return
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.Data(http.StatusOK, "application/json", payload)
}
