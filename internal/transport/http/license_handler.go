package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/license"
	"licensegate/internal/services"
	api "licensegate/pkg/contracts/api/v1"
)

const tracerName = "licensegate/transport/http"

// LicenseHandler serves the license endpoints. Routes that the service's
// variant does not support are never mounted and therefore answer 404.
type LicenseHandler struct {
	service      services.LicenseService
	issuer       services.LicenseIssuer
	registry     services.KeyRegistry
	decoder      *RequestDecoder
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, decoder *RequestDecoder, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *LicenseHandler {
	h := &LicenseHandler{
		service:      service,
		decoder:      decoder,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "license")),
	}
	h.issuer, _ = service.(services.LicenseIssuer)
	h.registry, _ = service.(services.KeyRegistry)
	return h
}

// Mount registers the license routes on r.
func (h *LicenseHandler) Mount(r chi.Router) {
	r.Post("/validate", h.Validate)
	r.Post("/revoke", h.Revoke)
	if h.issuer != nil {
		r.Post("/add", h.AddLicense)
	}
	if h.registry != nil {
		r.Post("/add-key", h.AddKey)
		r.Get("/keys", h.ListKeys)
	}
}

// Validate handles POST /validate. Malformed input is answered in the same
// {isValid, message} shape as a domain result.
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "license_handler.validate")
	defer span.End()

	var req api.ValidateRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		var apiErr *apperrors.APIError
		if errors.As(err, &apiErr) {
			h.logger.InfoContext(ctx, "rejected validate request", slog.String("reason", apiErr.Message))
			render.Status(r, apiErr.StatusCode)
			render.JSON(w, r, &api.ValidateResponse{IsValid: false, Message: apiErr.Message})
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("license.key", license.MaskLicenseKey(req.Key)))

	resp, err := h.service.Validate(ctx, req)
	if err = afterDeadline(ctx, err); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Bool("license.valid", resp.IsValid))
	render.JSON(w, r, resp)
}

// AddLicense handles POST /add (static variant).
func (h *LicenseHandler) AddLicense(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "license_handler.add")
	defer span.End()

	var req api.AddLicenseRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	resp, err := h.issuer.AddLicense(ctx, req)
	if err = afterDeadline(ctx, err); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// AddKey handles POST /add-key (remote variant).
func (h *LicenseHandler) AddKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "license_handler.add_key")
	defer span.End()

	var req api.AddKeyRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	resp, err := h.registry.AddKey(ctx, req)
	if err = afterDeadline(ctx, err); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// ListKeys handles GET /keys (remote variant).
func (h *LicenseHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "license_handler.list_keys")
	defer span.End()

	resp, err := h.registry.ListKeys(ctx)
	if err = afterDeadline(ctx, err); err != nil {
		h.respondError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("license.key_count", resp.Count))
	render.JSON(w, r, resp)
}

// Revoke handles POST /revoke.
func (h *LicenseHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "license_handler.revoke")
	defer span.End()

	var req api.RevokeRequest
	if err := h.decoder.Decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	resp, err := h.service.Revoke(ctx, req)
	if err = afterDeadline(ctx, err); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// respondError writes client errors as {message} with their status. Server
// errors go through the error handler as problem JSON.
func (h *LicenseHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		h.logger.InfoContext(r.Context(), "rejected request",
			slog.String("path", r.URL.Path),
			slog.Int("status", apiErr.StatusCode),
			slog.String("reason", apiErr.Message))
		render.Status(r, apiErr.StatusCode)
		render.JSON(w, r, &api.MessageResponse{Message: apiErr.Message})
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

// afterDeadline reports the request context's error once it is done, so a
// result computed past the deadline is never written.
func afterDeadline(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (h *LicenseHandler) startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(r.Context(), name,
		trace.WithAttributes(
			attribute.String("license.variant", string(h.service.Variant())),
		),
	)
}
