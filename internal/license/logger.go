package license

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaskLicenseKey masks a license key for logging (ABCD****MNOP). Keys of
// eight characters or fewer are fully masked.
func MaskLicenseKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// discardLogger is used when no logger is supplied.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// logAction logs one license action and mirrors it as a span event so log
// lines and traces correlate.
func logAction(ctx context.Context, logger *slog.Logger, level slog.Level, action, result string, attrs ...slog.Attr) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("license."+action, trace.WithAttributes(
			attribute.String("action", action),
			attribute.String("result", result),
		))
	}

	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all,
		slog.String("action", action),
		slog.String("result", result),
	)
	all = append(all, attrs...)
	logger.LogAttrs(ctx, level, "license "+action, all...)
}

// logValidation records a finished validation at debug level for valid
// outcomes and info level for rejections.
func logValidation(ctx context.Context, logger *slog.Logger, key string, outcome Outcome, d time.Duration) {
	level := slog.LevelInfo
	if outcome.Valid() {
		level = slog.LevelDebug
	}
	logAction(ctx, logger, level, "validate", outcome.String(),
		slog.String("license_key", MaskLicenseKey(key)),
		slog.Bool("valid", outcome.Valid()),
		slog.Duration("duration", d),
	)
}
