// Package http is the engine's HTTP transport: chi routing, JSON
// request/response rendering, and the Prometheus metrics endpoint.
// Handlers translate service errors into structured APIError payloads;
// the engine's busy flag surfaces as 409 ENGINE_BUSY.
package http
