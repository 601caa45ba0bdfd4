package handlers

import (
	"context"
	"errors"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/catalog/internal/domain/product"
	"github.com/geocoder89/catalog/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/h2non/filetype"
	"github.com/microcosm-cc/bluemonday"
)

const productTimeout = 5 * time.Second

type ProductStore interface {
	List(ctx context.Context, f product.ListFilter) (product.Page, error)
	GetByID(ctx context.Context, id int64) (product.Product, error)
	Create(ctx context.Context, in product.CreateInput, ownerID string) (product.Product, error)
	Update(ctx context.Context, id int64, in product.UpdateInput) (product.Product, error)
	Delete(ctx context.Context, id int64) (product.Product, error)
}

type ProductsHandler struct {
	store          ProductStore
	policy         *bluemonday.Policy
	maxUploadBytes int64
}

func NewProductsHandler(store ProductStore, maxUploadBytes int64) *ProductsHandler {
	return &ProductsHandler{
		store:          store,
		policy:         bluemonday.StrictPolicy(),
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *ProductsHandler) List(ctx *gin.Context) {
	var filter product.ListFilter
	if !BindQuery(ctx, &filter) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), productTimeout)
	defer cancel()

	page, err := h.store.List(cctx, filter)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccessWithETag(ctx, page, "Products retrieved.")
}

func (h *ProductsHandler) Get(ctx *gin.Context) {
	id, ok := productID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), productTimeout)
	defer cancel()

	p, err := h.store.GetByID(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccessWithETag(ctx, p, "Product retrieved.")
}

func (h *ProductsHandler) Create(ctx *gin.Context) {
	var req product.CreateRequest
	if !Bind(ctx, &req) {
		return
	}

	title, ok := h.cleanTitle(ctx, req.Title)
	if !ok {
		return
	}

	image, ok := h.readImage(ctx)
	if !ok {
		return
	}

	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Unauthenticated.")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), productTimeout)
	defer cancel()

	p, err := h.store.Create(cctx, product.CreateInput{
		Title: title,
		Slug:  req.Slug,
		Price: *req.Price,
		Image: image,
	}, ownerID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccess(ctx, p, "Product created.")
}

// Update serves both PUT and POST on /products/:id so multipart clients
// that cannot send PUT can still replace the image.
func (h *ProductsHandler) Update(ctx *gin.Context) {
	id, ok := productID(ctx)
	if !ok {
		return
	}

	var req product.UpdateRequest
	if !Bind(ctx, &req) {
		return
	}

	in := product.UpdateInput{
		Slug:  req.Slug,
		Price: req.Price,
	}

	if req.Title != nil {
		title, ok := h.cleanTitle(ctx, *req.Title)
		if !ok {
			return
		}
		in.Title = &title
	}

	in.Image, ok = h.readImage(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), productTimeout)
	defer cancel()

	p, err := h.store.Update(cctx, id, in)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccess(ctx, p, "Product updated.")
}

func (h *ProductsHandler) Delete(ctx *gin.Context) {
	id, ok := productID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), productTimeout)
	defer cancel()

	p, err := h.store.Delete(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccess(ctx, p, "Product deleted.")
}

// ids that cannot exist are reported like any other missing product
func productID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondErr(ctx, product.ErrNotFound)
		return 0, false
	}
	return id, true
}

func (h *ProductsHandler) cleanTitle(ctx *gin.Context, raw string) (string, bool) {
	title := strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(raw)))
	if title == "" {
		RespondBadRequest(ctx, "The given data was invalid.", gin.H{
			"fields": []FieldError{{Field: "title", Rule: "required", Message: validationMessage("required", "")}},
		})
		return "", false
	}
	return title, true
}

// readImage returns the optional "image" part of a multipart request.
func (h *ProductsHandler) readImage(ctx *gin.Context) (*product.Upload, bool) {
	if ctx.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, true
	}

	fh, err := ctx.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		RespondBadRequest(ctx, "Could not read uploaded image.", gin.H{"image": "unreadable"})
		return nil, false
	}

	if fh.Size > h.maxUploadBytes {
		RespondFailure(ctx, http.StatusRequestEntityTooLarge, "Image is too large.", gin.H{"limit": h.maxUploadBytes})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		RespondBadRequest(ctx, "Could not read uploaded image.", gin.H{"image": "unreadable"})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		RespondBadRequest(ctx, "Could not read uploaded image.", gin.H{"image": "unreadable"})
		return nil, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		RespondFailure(ctx, http.StatusRequestEntityTooLarge, "Image is too large.", gin.H{"limit": h.maxUploadBytes})
		return nil, false
	}

	if !filetype.IsImage(data) {
		RespondErr(ctx, product.ErrInvalidImage)
		return nil, false
	}

	return &product.Upload{Filename: fh.Filename, Data: data}, true
}
