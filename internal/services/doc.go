// Package services sits between the HTTP handlers and the license package.
//
// LicenseService is implemented once per variant. StaticLicenseService
// also implements LicenseIssuer (POST /add); RemoteLicenseService also
// implements KeyRegistry (POST /add-key, GET /keys). Handlers discover the
// optional capabilities with type assertions and only mount the routes a
// service supports.
//
// Services translate license outcomes into API responses and license
// sentinel errors into *errors.APIError values. A validation that fails for
// domain reasons is a normal response, never an error.
package services
