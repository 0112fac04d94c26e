// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - Auth: validates the X-API-Key header (or api_key query parameter)
//     against the configured key. An empty key leaves the API open.
//   - RayID: tags every request with a unique ray id stored in the
//     context locals and echoed in the X-Ray-ID response header, so log
//     lines of one merge request can be correlated.
//
// RayID must be registered first so that every later handler can log it.
package middleware
