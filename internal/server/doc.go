// Package server exposes the store over HTTP.
//
// All data operations travel through a single POST /rpc endpoint
// carrying a request envelope: a JSON object with optional get, set,
// and delete sections. Each section present in the request produces the
// matching section in the response envelope, tagged with an ok or fail
// status. An empty envelope is valid and yields an empty response.
//
// The Dispatcher maps envelope sections onto store operations and,
// when a write-ahead log is attached, records successful mutations to
// it. The HTTP layer handles decoding, correlation IDs, and logging;
// it knows nothing about store semantics.
package server
