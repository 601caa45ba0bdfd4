package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// Bind decodes the body by Content-Type (JSON, urlencoded or multipart) and
// validates it. On failure the 400 envelope is already written.
func Bind(ctx *gin.Context, out any) bool {
	return bindWith(ctx, out, ctx.ShouldBind)
}

func BindJSON(ctx *gin.Context, out any) bool {
	return bindWith(ctx, out, ctx.ShouldBindJSON)
}

func BindQuery(ctx *gin.Context, out any) bool {
	return bindWith(ctx, out, func(obj any) error {
		return ctx.ShouldBindWith(obj, binding.Query)
	})
}

func bindWith(ctx *gin.Context, out any, bind func(any) error) bool {
	err := bind(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondFailure(ctx, http.StatusRequestEntityTooLarge, "Request body is too large.",
			gin.H{"limit": tooLarge.Limit})
		return false
	}

	RespondBadRequest(ctx, "The given data was invalid.", parseBindError(err, out))
	return false
}

func parseBindError(err error, out any) any {
	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors
	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   wireName(rootType, fieldError.StructField(), fieldError.Field()),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var unmatchedTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmatchedTypeError) {
		field := wireName(rootType, unmatchedTypeError.Field, unmatchedTypeError.Field)

		return gin.H{
			"json": "invalid_json_type",
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
			}},
		}
	}

	// form and query values that fail number parsing
	var numError *strconv.NumError
	if errors.As(err, &numError) {
		return gin.H{
			"fields": []FieldError{{
				Field:   "",
				Rule:    "type",
				Message: fmt.Sprintf("%q is not a valid number", numError.Num),
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

func baseStructType(v any) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// wireName returns the json (or form) name of a top-level struct field.
func wireName(rootType reflect.Type, structField, fallback string) string {
	if rootType == nil || structField == "" {
		return fallback
	}

	sf, ok := rootType.FieldByName(structField)
	if !ok {
		return fallback
	}

	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}

	return sf.Name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "slug":
		return "may only contain lowercase letters, numbers and single hyphens"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
