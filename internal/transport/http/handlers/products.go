package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

const (
	imageFormField = "image"
	// maxUploadBytes bounds the multipart request; the use case enforces the image limit itself.
	maxUploadBytes = 6 << 20
	sniffLen       = 512
)

type ProductUseCases interface {
	Create(ctx context.Context, auth domain.AuthContext, in usecase.CreateProductInput) domain.Result[domain.Product]
	Get(ctx context.Context, auth domain.AuthContext, id string) domain.Result[domain.Product]
	List(ctx context.Context, auth domain.AuthContext, in usecase.ListInput) domain.Result[domain.QueryResult[domain.Product]]
	Update(ctx context.Context, auth domain.AuthContext, in usecase.UpdateProductInput) domain.Result[domain.Product]
	Delete(ctx context.Context, auth domain.AuthContext, id string) domain.Result[usecase.Deleted]
	AttachImage(ctx context.Context, auth domain.AuthContext, in usecase.AttachImageInput) domain.Result[domain.Product]
}

// ProductHandler serves the product catalogue.
type ProductHandler struct {
	products ProductUseCases
}

func NewProductHandler(products ProductUseCases) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.POST("/:id/images", h.AttachImage)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var in usecase.CreateProductInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.products.Create(ctx, middleware.Auth(c), in))
}

func (h *ProductHandler) Get(c *gin.Context) {
	response.Write(c, h.products.Get(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

func (h *ProductHandler) List(c *gin.Context) {
	in := ParseListInput(c)
	response.WriteList(c, h.products.List(c.Request.Context(), middleware.Auth(c), in))
}

func (h *ProductHandler) Update(c *gin.Context) {
	var in usecase.UpdateProductInput
	ctx := decodeJSON(c, &in)
	in.ID = c.Param("id")
	response.Write(c, h.products.Update(ctx, middleware.Auth(c), in))
}

func (h *ProductHandler) Delete(c *gin.Context) {
	response.Write(c, h.products.Delete(c.Request.Context(), middleware.Auth(c), c.Param("id")))
}

// AttachImage uploads the multipart "image" field to object storage and appends its URL.
// POST /api/v1/products/:id/images
func (h *ProductHandler) AttachImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	ctx := c.Request.Context()
	in := usecase.AttachImageInput{ProductID: c.Param("id")}
	if err := readUpload(c, &in); err != nil {
		ctx = usecase.WithDecodeError(ctx, err)
	}
	if closer, ok := in.Body.(io.Closer); ok {
		defer closer.Close()
	}
	response.Write(c, h.products.AttachImage(ctx, middleware.Auth(c), in))
}

type upload struct {
	io.Reader
	io.Closer
}

// readUpload fills in from the multipart image field, sniffing the content
// type when the client sent none.
func readUpload(c *gin.Context, in *usecase.AttachImageInput) error {
	header, err := c.FormFile(imageFormField)
	if err != nil {
		return errors.New("multipart field \"image\" is required")
	}

	file, err := header.Open()
	if err != nil {
		return errors.New("unreadable upload")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		_ = file.Close()
		return errors.New("unreadable upload")
	}
	head = head[:n]

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}

	in.Filename = filepath.Base(header.Filename)
	in.ContentType = contentType
	in.Size = header.Size
	in.Body = upload{Reader: io.MultiReader(bytes.NewReader(head), file), Closer: file}
	return nil
}
