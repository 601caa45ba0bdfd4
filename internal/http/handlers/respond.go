package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/domain/product"
	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Errors  any    `json:"errors"`
}

func RespondSuccess(ctx *gin.Context, data any, message string) {
	ctx.JSON(http.StatusOK, Envelope{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func RespondFailure(ctx *gin.Context, status int, message string, errs any) {
	ctx.AbortWithStatusJSON(status, Envelope{
		Status:  false,
		Message: message,
		Errors:  errs,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, errs any) {
	RespondFailure(ctx, http.StatusBadRequest, message, errs)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondFailure(ctx, http.StatusUnauthorized, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondFailure(ctx, http.StatusNotFound, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondFailure(ctx, http.StatusInternalServerError, message, nil)
}

// RespondErr maps an error from the auth service or product store to its
// status code and message. Unknown errors are logged and reported as 500
// without their text.
func RespondErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, product.ErrNotFound):
		RespondNotFound(ctx, "Product not found.")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found.")

	case errors.Is(err, user.ErrDuplicateEmail):
		RespondBadRequest(ctx, "Email is already in use.", gin.H{"email": "taken"})
	case errors.Is(err, product.ErrDuplicateSlug):
		RespondBadRequest(ctx, "Slug is already in use.", gin.H{"slug": "taken"})
	case errors.Is(err, product.ErrInvalidFilter):
		RespondBadRequest(ctx, "Invalid list filter.", gin.H{"reason": err.Error()})
	case errors.Is(err, product.ErrInvalidImage):
		RespondBadRequest(ctx, "Uploaded file must be an image.", gin.H{"image": "invalid"})

	case errors.Is(err, auth.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "Email or password is incorrect.")
	case errors.Is(err, auth.ErrUnauthenticated):
		RespondUnauthorized(ctx, "Unauthenticated.")

	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
			"route", ctx.FullPath(), "err", err)
		RespondInternal(ctx, "Something went wrong. Please try again.")
	}
}
