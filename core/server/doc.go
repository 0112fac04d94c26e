// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber application from these settings: the
// listen port, the API key checked by the auth middleware and the request
// body limit.
package server
