package product

import (
	"errors"
	"time"
)

type Product struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Price     int64     `json:"price"`
	Image     *string   `json:"image"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("product not found")
	ErrDuplicateSlug = errors.New("slug already in use")
	ErrPersistence   = errors.New("product could not be persisted")
	ErrInvalidFilter = errors.New("invalid list filter")
	ErrInvalidImage  = errors.New("uploaded file is not an image")
)

// Upload is an image received from a client, before it is stored.
type Upload struct {
	Filename string
	Data     []byte
}

type CreateInput struct {
	Title string
	Slug  string
	Price int64
	Image *Upload
}

// UpdateInput leaves a field untouched when it is nil.
type UpdateInput struct {
	Title *string
	Slug  *string
	Price *int64
	Image *Upload
}

// Form binding for POST /products. Works for multipart and JSON bodies.
type CreateRequest struct {
	Title string `form:"title" json:"title" binding:"required,max=255"`
	Slug  string `form:"slug" json:"slug" binding:"omitempty,max=255,slug"`
	Price *int64 `form:"price" json:"price" binding:"required,gte=0"`
}

type UpdateRequest struct {
	Title *string `form:"title" json:"title" binding:"omitempty,min=1,max=255"`
	Slug  *string `form:"slug" json:"slug" binding:"omitempty,max=255,slug"`
	Price *int64  `form:"price" json:"price" binding:"omitempty,gte=0"`
}
