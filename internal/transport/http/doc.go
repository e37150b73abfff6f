// Package http implements the HTTP handlers of licensegate.
//
// Handlers are thin: they decode and validate the JSON body, call a service
// and render the result with go-chi/render. They never hold license state.
//
// # Routes
//
//	POST /validate   both variants
//	POST /revoke     both variants
//	POST /add        static variant
//	POST /add-key    remote variant
//	GET  /keys       remote variant
//	GET  /healthz    liveness
//	GET  /readyz     readiness, 503 when the license subsystem is unhealthy
//	GET  /version    build information
//
// # Errors
//
// Client errors (malformed JSON, failed validation, duplicate key) are
// answered with the route's own JSON shape and a 4xx status. /validate uses
// {isValid:false, message}; every other route uses {message}. Server errors
// are rendered as RFC 7807 problem documents by errors.ErrorHandler.
package http
