// Package client talks to the site store HTTP API. It implements
// docsync.Remote and the asset endpoints used by the logo upload flow.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/syncerr"
	"github.com/sitecraft/siteadmin/pkg/logger"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. The default is http.DefaultClient, so
// the only deadline is the caller's context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// call describes one request. resource and version are only used to build
// NotFound and Conflict errors.
type call struct {
	method   string
	path     string
	query    url.Values
	body     any
	resource string
	version  string
}

func (cl call) op() string { return cl.method + " " + cl.path }

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op(), err)
		}
		body = bytes.NewReader(b)
	}
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return &syncerr.TransportError{Op: cl.op(), Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Debugf("client: %s (request %s)", cl.op(), reqID)
	resp, err := c.http.Do(req)
	if err != nil {
		return &syncerr.TransportError{Op: cl.op(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &syncerr.TransportError{Op: cl.op(), Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	msg := readError(resp.Body)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return syncerr.NotFound(cl.op(), cl.resource)
	case http.StatusConflict:
		return &syncerr.ConflictError{Resource: cl.resource, ExpectedVersion: cl.version, Message: msg}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &syncerr.TransportError{Op: cl.op(), Status: resp.StatusCode, Err: errors.New(msg)}
}

func readError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		return eb.Error
	}
	return strings.TrimSpace(string(raw))
}

// Fetch implements docsync.Remote. GET /<kind> answers {<kind>, sha}.
func (c *Client) Fetch(ctx context.Context, kind site.Kind) (jsontree.Value, string, error) {
	var env map[string]jsontree.Value
	cl := call{method: http.MethodGet, path: "/" + kind.String(), resource: kind.String()}
	if err := c.do(ctx, cl, &env); err != nil {
		return jsontree.Value{}, "", err
	}
	snap, ok := env[kind.String()]
	if !ok {
		return jsontree.Value{}, "", &syncerr.TransportError{Op: cl.op(), Err: fmt.Errorf("response has no %q member", kind)}
	}
	sha, ok := env["sha"]
	if !ok {
		return jsontree.Value{}, "", &syncerr.TransportError{Op: cl.op(), Err: errors.New("response has no sha")}
	}
	version, _ := sha.AsString()
	return snap, version, nil
}

// Save implements docsync.Remote. Content is written through
// POST /content/update {newContent, sha} and answers {newSha}; pages and
// sections are written through POST /<kind> {<kind>, sha} and answer
// {sha, <kind>}.
func (c *Client) Save(ctx context.Context, kind site.Kind, snap jsontree.Value, version string) (jsontree.Value, string, error) {
	if kind == site.KindContent {
		var out struct {
			NewSHA string `json:"newSha"`
		}
		cl := call{
			method:   http.MethodPost,
			path:     "/content/update",
			body:     map[string]any{"newContent": snap, "sha": version},
			resource: kind.String(),
			version:  version,
		}
		if err := c.do(ctx, cl, &out); err != nil {
			return jsontree.Value{}, "", err
		}
		return snap, out.NewSHA, nil
	}

	var env map[string]jsontree.Value
	cl := call{
		method:   http.MethodPost,
		path:     "/" + kind.String(),
		body:     map[string]any{kind.String(): snap, "sha": version},
		resource: kind.String(),
		version:  version,
	}
	if err := c.do(ctx, cl, &env); err != nil {
		return jsontree.Value{}, "", err
	}
	sha, _ := env["sha"].AsString()
	if sha == "" {
		return jsontree.Value{}, "", &syncerr.TransportError{Op: cl.op(), Err: errors.New("response has no sha")}
	}
	accepted, ok := env[kind.String()]
	if !ok {
		accepted = snap
	}
	return accepted, sha, nil
}

// ListDirectory returns the file names under dir.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	var out struct {
		Files []string `json:"files"`
	}
	cl := call{method: http.MethodGet, path: "/directory/list", query: url.Values{"path": {dir}}, resource: dir}
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// AssetMetadata returns the version token of the asset at path. A missing
// asset is reported as syncerr.ErrNotFound.
func (c *Client) AssetMetadata(ctx context.Context, path string) (string, error) {
	var out struct {
		SHA string `json:"sha"`
	}
	cl := call{method: http.MethodGet, path: "/assets/metadata", query: url.Values{"path": {path}}, resource: path}
	if err := c.do(ctx, cl, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

// Upload is a binary asset write. An empty SHA asks the store to create the
// file and fail with a conflict if it already exists.
type Upload struct {
	Path    string
	Content []byte
	SHA     string
}

type UploadResult struct {
	NewSHA  string `json:"newSha"`
	FileURL string `json:"fileUrl"`
}

// UploadProductImage writes an asset through POST /product-images.
func (c *Client) UploadProductImage(ctx context.Context, up Upload) (UploadResult, error) {
	body := map[string]any{
		"path":          up.Path,
		"contentBase64": base64.StdEncoding.EncodeToString(up.Content),
	}
	if up.SHA != "" {
		body["sha"] = up.SHA
	}
	var out UploadResult
	cl := call{method: http.MethodPost, path: "/product-images", body: body, resource: up.Path, version: up.SHA}
	if err := c.do(ctx, cl, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}
