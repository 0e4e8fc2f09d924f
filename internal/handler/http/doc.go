// Package http implements the HTTP transport of the reference document
// server.
//
// It exposes route wiring, request handlers, and middleware. Authentication,
// request tracing, access logging and response compression are handled here
// before requests are delegated to the service layer. Change feeds are served
// over websockets.
package http
