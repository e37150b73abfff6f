// Package app wires licensegate together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Build the slog logger from the logging section (console, file or both)
//	2. Initialize OpenTelemetry tracing and the Prometheus-backed meter
//	3. Build the license manager for the configured variant
//	4. Wrap it in the variant's service and the health service
//	5. Mount handlers behind the middleware chain
//	6. Create the HTTP server
//
// The static variant seeds an in-memory store from the configured keys. The
// remote variant builds a key source (plain HTTPS list or Google Sheet), a
// refreshing key cache on top of it and an empty activation table.
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, or until the listener fails. Stop then
// drains in-flight requests within the shutdown timeout, flushes telemetry
// and closes the log file.
package app
