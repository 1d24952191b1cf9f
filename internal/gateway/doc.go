// Package gateway is the Remote Gateway: a thin request/response wrapper
// around the vendor API that reads and writes one vendor record per call.
//
// Keys are percent-encoded into the request path (EncodeKey) so codes such
// as "#FOO" reach the server as the literal key. Every non-success response
// becomes a *RemoteError; nothing is retried.
package gateway
