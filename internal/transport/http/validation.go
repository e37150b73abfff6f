package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "licensegate/internal/errors"
)

// RequestDecoder reads JSON request bodies and validates them against their
// struct tags. Failures are returned as *errors.APIError values whose
// message describes the problem: 413 for an oversize body, 400 otherwise.
type RequestDecoder struct {
	validate    *validator.Validate
	maxBodySize int64
}

// NewRequestDecoder creates a decoder that rejects bodies larger than
// maxBodySize bytes. A non-positive size disables the cap.
func NewRequestDecoder(maxBodySize int64) *RequestDecoder {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestDecoder{
		validate:    v,
		maxBodySize: maxBodySize,
	}
}

// Decode fills dst from the request body and validates it.
func (d *RequestDecoder) Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInvalidRequest, "request body is required")
	}

	body := io.Reader(r.Body)
	if d.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, d.maxBodySize)
	}

	if err := render.DecodeJSON(body, dst); err != nil {
		return decodeError(err)
	}

	return d.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (d *RequestDecoder) ValidateStruct(v interface{}) error {
	err := d.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(validationErrors)
}

func decodeError(err error) *apperrors.APIError {
	var (
		maxErr    *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxErr):
		return apperrors.PayloadTooLarge(maxErr.Limit)
	case errors.Is(err, io.EOF):
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInvalidRequest, "request body is required")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInvalidRequest, "invalid JSON: unexpected end of input")
	case errors.As(err, &syntaxErr):
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInvalidRequest,
			fmt.Sprintf("invalid JSON at offset %d: %s", syntaxErr.Offset, syntaxErr))
	case errors.As(err, &typeErr):
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInvalidRequest,
			fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type))
	default:
		return apperrors.InvalidRequestWithError(err)
	}
}

// formatValidationError formats validation error messages
func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
