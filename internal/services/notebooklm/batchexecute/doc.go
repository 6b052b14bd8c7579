// Package batchexecute implements the wire codec for the NotebookLM
// batchexecute RPC protocol.
//
// Requests wrap one call in the envelope [[[rpcID, "<params JSON>", null,
// "generic"]]] and send it form-encoded as f.req alongside the anti-forgery
// token. Responses arrive XSSI-guarded and framed as a mix of bare JSON lines
// and byte-count-prefixed JSON lines; ParseFrames turns that stream into
// decoded values and ExtractResult locates the wrb.fr tuple for one call.
//
// Everything here is pure: no I/O, no session state. The request counter and
// session id are passed in by the caller.
package batchexecute
