package contents

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// REST is a Service backed by a Jupyter-style contents HTTP API.
//
// Wire shape: GET/PUT/PATCH {base}/api/contents/{path}; models travel as
// JSON objects with name, path, content, type, format and last_modified.
type REST struct {
	baseURL string
	token   string
	client  *http.Client
}

// RESTOption configures a REST service.
type RESTOption func(*REST)

// WithToken sets the authorization token sent with every request.
func WithToken(token string) RESTOption {
	return func(r *REST) {
		r.token = token
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) RESTOption {
	return func(r *REST) {
		r.client = client
	}
}

// NewREST creates a contents client for the given server base URL.
func NewREST(baseURL string, opts ...RESTOption) *REST {
	r := &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get fetches the model at path.
func (r *REST) Get(ctx context.Context, p string, opts GetOptions) (Model, error) {
	endpoint := r.endpoint(p)
	query := url.Values{"content": {"1"}}
	if opts.Format != "" {
		query.Set("format", string(opts.Format))
	}
	if opts.Type != "" {
		query.Set("type", string(opts.Type))
	}

	body, err := r.do(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Model{}, &PathError{Op: "get", Path: p, Err: err}
	}
	return decodeModel(body), nil
}

// Save persists the model and returns the server's canonical model.
func (r *REST) Save(ctx context.Context, p string, model Model) (Model, error) {
	payload := "{}"
	payload, _ = sjson.Set(payload, "content", model.Content)
	payload, _ = sjson.Set(payload, "type", string(orDefault(model.Type, TypeFile)))
	payload, _ = sjson.Set(payload, "format", string(orDefault(model.Format, FormatText)))
	if model.Name != "" {
		payload, _ = sjson.Set(payload, "name", model.Name)
	}

	body, err := r.do(ctx, http.MethodPut, r.endpoint(p), strings.NewReader(payload))
	if err != nil {
		return Model{}, &PathError{Op: "save", Path: p, Err: err}
	}
	return decodeModel(body), nil
}

// Rename moves an entry and returns its model under the new path.
func (r *REST) Rename(ctx context.Context, oldPath, newPath string) (Model, error) {
	payload, _ := sjson.Set("{}", "path", normalize(newPath))

	body, err := r.do(ctx, http.MethodPatch, r.endpoint(oldPath), strings.NewReader(payload))
	if err != nil {
		return Model{}, &PathError{Op: "rename", Path: oldPath, Err: err}
	}
	return decodeModel(body), nil
}

// endpoint builds the API URL for a service path.
func (r *REST) endpoint(p string) string {
	escaped := url.PathEscape(normalize(p))
	// Keep path separators readable in request lines.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return r.baseURL + "/api/contents/" + escaped
}

// do executes a request and returns the response body on 2xx.
func (r *REST) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "token "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

// decodeModel parses a wire model.
func decodeModel(data []byte) Model {
	doc := gjson.ParseBytes(data)

	model := Model{
		Path:    doc.Get("path").String(),
		Name:    doc.Get("name").String(),
		Type:    Type(doc.Get("type").String()),
		Format:  Format(doc.Get("format").String()),
		Content: doc.Get("content").String(),
	}
	if ts := doc.Get("last_modified").String(); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			model.LastModified = parsed
		}
	}
	return model
}

// statusError maps an API failure to a sentinel or descriptive error.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyExists
	}

	if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		return fmt.Errorf("server returned %d: %s", status, msg)
	}
	return fmt.Errorf("server returned %d", status)
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}
