// Package duplclient is a request/reply client for a duplicate detection
// service.
//
// A Client is initialized once with the service address and a request
// timeout. Requests are JSON texts; each one is parsed, sent as a binary
// envelope and answered with the reply rendered back to JSON. The
// connection is opened by the first request and dropped whenever a request
// times out, so a late reply never pairs with a later request.
//
// A Client serves one request at a time.
package duplclient
