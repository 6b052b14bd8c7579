// Package session holds the NotebookLM authentication material: the cookie
// jar, the anti-forgery token (SNlM0e), the session id (FdrFJe), and the
// monotonic request counter.
//
// A Store is loaded once from the credential bundle written by an external
// login tool and is then mutated only through ApplySetCookies, SetCSRFToken,
// Refresh, and NextRequestID. All mutation is serialized so one Store can be
// shared by concurrent callers.
package session
