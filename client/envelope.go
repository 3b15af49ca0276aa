package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Envelope is the normalized result of a dispatched request. It is
// produced for both successful and failed responses.
type Envelope struct {
	// Status is the response status code.
	Status int
	// StatusText is the status line without the leading code, e.g. "Not Found".
	StatusText string
	// Message is guaranteed non-empty on failure. It holds the body's
	// top-level "message" string if present, otherwise StatusText.
	Message string
	// Header holds the response headers as received.
	Header http.Header
	// Raw is the unparsed response body. It is either empty or valid JSON.
	Raw json.RawMessage
}

func newEnvelope(resp *http.Response, raw []byte) *Envelope {
	return &Envelope{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Header:     resp.Header,
		Raw:        raw,
	}
}

// OK reports whether Status is within [200,299].
func (e *Envelope) OK() bool {
	return e.Status >= 200 && e.Status <= 299
}

// Decode unmarshals the response body into dst, which must be a pointer.
// An empty body leaves dst untouched.
func (e *Envelope) Decode(dst any) error {
	if len(e.Raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(e.Raw, dst); err != nil {
		return errors.Join(ErrDecodeBody, err)
	}

	return nil
}

// Fields returns the response body as a map when it is a JSON object.
// Numbers are kept as [json.Number].
func (e *Envelope) Fields() (map[string]any, error) {
	if len(e.Raw) == 0 {
		return map[string]any{}, nil
	}

	d := json.NewDecoder(bytes.NewReader(e.Raw))
	d.UseNumber()

	var fields map[string]any
	if err := d.Decode(&fields); err != nil {
		return nil, errors.Join(ErrDecodeBody, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}

	return fields, nil
}

// MarshalJSON renders the body object augmented with responseStatus,
// responseText and, when set, message. A non-object body is nested
// under "data".
func (e *Envelope) MarshalJSON() ([]byte, error) {
	out := map[string]any{}

	trimmed := bytes.TrimSpace(e.Raw)
	switch {
	case len(trimmed) == 0:
	case trimmed[0] == '{':
		fields, err := e.Fields()
		if err != nil {
			return nil, err
		}
		out = fields
	default:
		out["data"] = json.RawMessage(trimmed)
	}

	out["responseStatus"] = e.Status
	out["responseText"] = e.StatusText
	if e.Message != "" {
		out["message"] = e.Message
	}

	return json.Marshal(out)
}

// bodyMessage extracts a non-empty top-level "message" string from a
// JSON object body.
func bodyMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return ""
	}

	return body.Message
}

// statusText strips the numeric code from resp.Status, falling back to
// the canonical text for the code when the server sent none.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}

	return text
}
