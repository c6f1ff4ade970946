package petrovisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Format selects how a response body is decoded.
type Format int

const (
	// FormatJSON decodes the body as JSON into Result.Value.
	FormatJSON Format = iota
	// FormatText stores the body as a string.
	FormatText
	// FormatBytes stores the body as a byte slice.
	FormatBytes
	// FormatNone leaves Result.Value nil.
	FormatNone
)

// ErrorPolicy selects how an error response is surfaced.
type ErrorPolicy int

const (
	// ErrorsDefault uses the client's policy.
	ErrorsDefault ErrorPolicy = iota
	// ErrorsRaise returns an *APIError.
	ErrorsRaise
	// ErrorsCoerce logs a warning and returns no result.
	ErrorsCoerce
	// ErrorsIgnore returns the error response as the result.
	ErrorsIgnore
)

// ParseErrorPolicy maps "raise", "coerce" and "ignore" to a policy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch NormalizeName(s) {
	case "raise":
		return ErrorsRaise, nil
	case "coerce", "":
		return ErrorsCoerce, nil
	case "ignore":
		return ErrorsIgnore, nil
	}
	return ErrorsDefault, &UnknownNameError{Kind: "error policy", Name: s, Known: []string{"raise", "coerce", "ignore"}}
}

// FilePart is one file of a multipart upload.
type FilePart struct {
	Field string
	Name  string
	Data  []byte
}

// Call describes one web API request. Path is relative to the workspace.
type Call struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Files     []FilePart
	Format    Format
	Errors    ErrorPolicy
	Operation string
}

// Result is a completed response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Value holds the body decoded per the requested format.
	Value any
	// Decoded is false when the body could not be decoded.
	Decoded bool
}

// OK reports whether the response has a success status.
func (r *Result) OK() bool { return r != nil && r.StatusCode >= 200 && r.StatusCode < 300 }

// Call executes the request.
//
// A 401 response triggers one token refresh and one retry. A 400 or 404
// response is retried with a fixed delay up to the configured number of
// attempts, counted from the refresh when one happened. An error status left after that is handled per the call's
// error policy: ErrorsRaise returns an *APIError, ErrorsCoerce logs a
// warning and returns a nil result, ErrorsIgnore returns the response.
// A body that does not decode is returned raw with Decoded unset.
func (c *Client) Call(ctx context.Context, call Call) (*Result, error) {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	if call.Operation == "" {
		call.Operation = strings.ToLower(call.Method) + " " + call.Path
	}
	policy := call.Errors
	if policy == ErrorsDefault {
		policy = c.errors
	}

	u := c.requestURL(call.Path, call.Query)
	ctx, span := c.tracer.Start(ctx, "petrovisor."+call.Operation, trace.WithAttributes(
		attribute.String("http.method", call.Method),
		attribute.String("http.url", u),
	))
	defer span.End()

	payload, contentType, err := encodeBody(call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: encode body: %w", call.Operation, err)
	}

	var (
		resp      *http.Response
		body      []byte
		refreshed bool
		attempts  int
	)
	for {
		attempts++
		resp, body, err = c.send(ctx, call, u, payload, contentType)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		status := resp.StatusCode
		if status == http.StatusUnauthorized && !refreshed && c.canRefresh() {
			refreshed = true
			c.metrics.retry("unauthorized")
			c.logger.InfoContext(ctx, "refreshing token after 401", "operation", call.Operation)
			if err := c.Refresh(ctx); err != nil {
				c.logger.WarnContext(ctx, "token refresh failed", "operation", call.Operation, "error", err)
				break
			}
			attempts = 0
			continue
		}
		if (status == http.StatusBadRequest || status == http.StatusNotFound) && attempts < c.maxAttempts {
			c.metrics.retry(http.StatusText(status))
			c.logger.DebugContext(ctx, "retrying request", "operation", call.Operation, "status", status, "attempt", attempts)
			if err := sleep(ctx, c.retryDelay); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	res := &Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if !res.OK() {
		apiErr := newAPIError(call.Operation, resp.StatusCode, messageOf(resp, body))
		span.SetStatus(codes.Error, apiErr.Error())
		switch policy {
		case ErrorsRaise:
			return nil, apiErr
		case ErrorsIgnore:
			return res, nil
		default:
			c.logger.WarnContext(ctx, "request failed", "operation", call.Operation, "status", resp.StatusCode, "error", apiErr.Message())
			return nil, nil
		}
	}
	res.Value, res.Decoded = decodeBody(body, call.Format)
	return res, nil
}

func (c *Client) send(ctx context.Context, call Call, u string, payload []byte, contentType string) (*http.Response, []byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, u, rdr)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: create request: %w", call.Operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.currentToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.InfoContext(ctx, "API request", "operation", call.Operation, "method", call.Method, "url", u)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: do request: %w", call.Operation, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read response: %w", call.Operation, err)
	}
	c.metrics.observe(call.Method, resp.StatusCode, time.Since(start))

	c.logger.DebugContext(ctx, "API response", "operation", call.Operation, "status", resp.StatusCode)
	return resp, body, nil
}

// requestURL joins api, route, workspace and path, escaping each segment.
func (c *Client) requestURL(path string, query url.Values) string {
	p := c.route
	if c.workspace != "" {
		p += c.workspace + "/"
	}
	p += strings.TrimLeft(strings.TrimSpace(path), "/")
	u := strings.TrimSuffix(c.api, "/") + "/" + escapePath(p)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// escapePath percent-encodes every segment of p, keeping the separators.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = strings.ReplaceAll(url.PathEscape(s), "$", "%24")
	}
	return strings.Join(segs, "/")
}

func encodeBody(call Call) ([]byte, string, error) {
	if len(call.Files) > 0 {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for _, f := range call.Files {
			field := f.Field
			if field == "" {
				field = "file"
			}
			w, err := mw.CreateFormFile(field, f.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := w.Write(f.Data); err != nil {
				return nil, "", err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), mw.FormDataContentType(), nil
	}
	switch b := call.Body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/json", nil
	case json.RawMessage:
		return b, "application/json", nil
	}
	data, err := json.Marshal(call.Body)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func decodeBody(body []byte, format Format) (any, bool) {
	switch format {
	case FormatText:
		return string(body), true
	case FormatBytes:
		return body, true
	case FormatNone:
		return nil, true
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, true
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return v, true
}

func messageOf(resp *http.Response, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return msg
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// doJSON runs call and decodes a JSON response into dst. dst may be nil.
// A call suppressed by the error policy leaves dst untouched.
func (c *Client) doJSON(ctx context.Context, call Call, dst any) error {
	call.Format = FormatNone
	res, err := c.Call(ctx, call)
	if err != nil || res == nil || !res.OK() || dst == nil {
		return err
	}
	if len(bytes.TrimSpace(res.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, dst); err != nil {
		return &DecodeError{Operation: call.Operation, Body: res.Body, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, dst any) error {
	return c.doJSON(ctx, Call{Method: http.MethodGet, Path: path, Query: query, Operation: op}, dst)
}

func (c *Client) post(ctx context.Context, op, path string, query url.Values, body, dst any) error {
	return c.doJSON(ctx, Call{Method: http.MethodPost, Path: path, Query: query, Body: body, Operation: op}, dst)
}

func (c *Client) put(ctx context.Context, op, path string, query url.Values, body, dst any) error {
	return c.doJSON(ctx, Call{Method: http.MethodPut, Path: path, Query: query, Body: body, Operation: op}, dst)
}

func (c *Client) delete(ctx context.Context, op, path string, query url.Values, dst any) error {
	return c.doJSON(ctx, Call{Method: http.MethodDelete, Path: path, Query: query, Operation: op}, dst)
}

// raise is get with the error policy forced to ErrorsRaise, for calls whose
// outcome drives control flow.
func (c *Client) raise(ctx context.Context, op, path string, query url.Values, dst any) error {
	return c.doJSON(ctx, Call{Method: http.MethodGet, Path: path, Query: query, Operation: op, Errors: ErrorsRaise}, dst)
}
