package batchexecute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Call is one RPC invocation: an opaque identifier plus positional parameters.
type Call struct {
	ID     string
	Params any
}

// MarshalCompact serializes v without inserted whitespace and without HTML
// escaping, matching what a browser JSON.stringify produces.
func MarshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Envelope returns the compact [[[id, paramsJSON, null, "generic"]]] string.
func Envelope(call Call) (string, error) {
	if strings.TrimSpace(call.ID) == "" {
		return "", fmt.Errorf("batchexecute: empty rpc id")
	}
	params, err := MarshalCompact(call.Params)
	if err != nil {
		return "", fmt.Errorf("batchexecute: marshal %s params: %w", call.ID, err)
	}
	envelope, err := MarshalCompact([]any{[]any{[]any{call.ID, params, nil, envelopeMode}}})
	if err != nil {
		return "", fmt.Errorf("batchexecute: marshal %s envelope: %w", call.ID, err)
	}
	return envelope, nil
}

// EncodeBody builds the form body f.req=<envelope>&at=<token>&. The at
// segment is omitted when token is empty.
func EncodeBody(call Call, token string) (string, error) {
	envelope, err := Envelope(call)
	if err != nil {
		return "", err
	}
	return formBody(envelope, token), nil
}

// EncodeChatBody builds the streamed chat body f.req=[null,"<params>"]&at=<token>&.
func EncodeChatBody(params any, token string) (string, error) {
	inner, err := MarshalCompact(params)
	if err != nil {
		return "", fmt.Errorf("batchexecute: marshal chat params: %w", err)
	}
	outer, err := MarshalCompact([]any{nil, inner})
	if err != nil {
		return "", fmt.Errorf("batchexecute: marshal chat envelope: %w", err)
	}
	return formBody(outer, token), nil
}

func formBody(freq, token string) string {
	var b strings.Builder
	b.WriteString("f.req=")
	b.WriteString(url.QueryEscape(freq))
	if token != "" {
		b.WriteString("&at=")
		b.WriteString(url.QueryEscape(token))
	}
	b.WriteByte('&')
	return b.String()
}

// URLBuilder produces endpoint URLs carrying the per-call query metadata.
type URLBuilder struct {
	BaseURL    string
	BuildLabel string
	Locale     string
}

// BatchURL builds the batchexecute URL for one call. sourcePath defaults to "/".
func (b URLBuilder) BatchURL(rpcID, sourcePath string, reqID int64, sessionID string) string {
	if sourcePath == "" {
		sourcePath = "/"
	}
	q := b.commonQuery(reqID, sessionID)
	q.Set("rpcids", rpcID)
	q.Set("source-path", sourcePath)
	return strings.TrimRight(b.BaseURL, "/") + BatchPath + "?" + q.Encode()
}

// ChatURL builds the streamed chat URL.
func (b URLBuilder) ChatURL(reqID int64, sessionID string) string {
	q := b.commonQuery(reqID, sessionID)
	return strings.TrimRight(b.BaseURL, "/") + ChatPath + "?" + q.Encode()
}

func (b URLBuilder) commonQuery(reqID int64, sessionID string) url.Values {
	q := url.Values{}
	q.Set("bl", b.BuildLabel)
	q.Set("hl", b.Locale)
	q.Set("rt", transportRT)
	q.Set("_reqid", strconv.FormatInt(reqID, 10))
	if sessionID != "" {
		q.Set("f.sid", sessionID)
	}
	return q
}
