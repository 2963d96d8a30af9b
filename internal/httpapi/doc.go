// Package httpapi exposes the gatekeeper Engine over HTTP with a chi router.
//
// Responses use a fixed envelope:
//
//	{"status":"success","data":...}
//	{"status":"error","code":"TOKEN_EXPIRED","message":"token expired"}
//
// Rate limited requests get 429 with a Retry-After header. Password reset
// requests always answer 202 whether or not the email exists.
//
// # What this package must NOT do
//
//   - Implement authentication decisions; every decision is an Engine call.
//   - Echo WAF patterns or internal error text to clients.
package httpapi
