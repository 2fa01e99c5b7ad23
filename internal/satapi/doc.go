// Package satapi provides an HTTP client for the texture-automation asset
// service.
//
// # Overview
//
// The service stores Substance source files (.sbs) and compiled archives
// (.sbsar), extracts their input parameters, and renders preview thumbnails.
// This package is the only place that speaks its wire protocol. Everything it
// returns is still raw: the asset package normalizes RawAsset values before
// they reach the cache.
//
// # Architecture
//
//   - client.go: Client, request plumbing, and one method per endpoint
//   - types.go: structures mirroring the JSON payloads
//   - errors.go: APIError and helpers for classifying failures
//
// # Client Usage
//
//	client, err := satapi.NewClient("127.0.0.1:5000",
//		satapi.WithTokenStore(tokens),
//		satapi.WithRateLimit(8),
//		satapi.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	raws, err := client.ListAllAssets(ctx, satapi.ListQuery{})
//
// # API Endpoints
//
//   - GET    /api/assets                               paginated list
//   - GET    /api/assets/:id                           single asset
//   - POST   /api/assets/upload                        multipart upload
//   - PUT    /api/assets/:id                           partial update
//   - DELETE /api/assets/:id                           delete
//   - POST   /api/assets/:id/extract-parameters        parameter extraction
//   - POST   /api/assets/:id/generate-thumbnail        thumbnail render
//   - GET    /api/health                               liveness
//
// ListAllAssets follows totalPages until the collection is exhausted, so the
// cache always receives the full set.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Wait on the optional rate limiter before dialing
//   - Set Accept, User-Agent, and a fresh X-Request-ID
//   - Attach "Authorization: Bearer <token>" when the TokenStore has one
//
// A 401 response clears the stored token before the error is returned. There
// is no redirect to a login screen; the caller decides what to show.
//
// # Error Handling
//
// Every failure is an *APIError carrying exactly one user-facing Message,
// chosen in this order:
//
//  1. the server's {"error": "..."} or {"message": "..."} field
//  2. the transport error text when no response arrived
//  3. FallbackMessage
//
// Status is zero for transport failures. IsTransport, IsUnauthorized and
// IsNotFound classify errors without type assertions at call sites.
//
// # Thread Safety
//
// Client is safe for concurrent use. The rate limiter is shared across
// goroutines, which is what keeps batch operations polite.
package satapi
