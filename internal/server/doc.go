// Package server exposes the HTTP surface of the service.
//
// The API server carries the linking flow endpoints, the message retrieval
// endpoint and the Kubernetes health probes. Prometheus metrics are served
// on a dedicated port to keep operational data off the application listener.
// All authenticated routes expect a bearer token resolved to a user id by an
// IdentityVerifier; the provider callback is the only unauthenticated
// application route.
package server
