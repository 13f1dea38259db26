// Package server is the HTTP surface of sttd: a Gin engine served with
// HTTP/2 cleartext (h2c) support.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation, also used as the correlation id
//   - Metrics: OpenTelemetry request count, duration and in-flight gauge
//   - CORS: cross-origin headers and preflight handling
//   - RateLimit: per-client token bucket
//   - BodySizeLimit: upload size cap
//   - RequestLogger: request logging with duration tracking
//   - Auth: static API key bearer authentication for /v1
//
// # Endpoints
//
//   - GET /health: liveness
//   - GET /ready: provider availability
//   - GET /info: build information
//   - POST /v1/transcriptions: multipart upload, routed transcription
//   - GET /v1/providers: provider capabilities and health
package server
