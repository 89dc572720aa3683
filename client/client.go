// Package client provides an HTTP handle for driving code under test against a
// mock transport. It builds requests with functional options and fails the test
// on transport errors, in the style of an API test client.
package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/wirematch/wirematch/ct"
)

// RequestOpt is a functional option which will modify an outgoing HTTP request.
// See functions starting with `With...` in this package for more info.
type RequestOpt func(req *http.Request)

// Client is an HttpClient-like handle bound to a base URL. When constructed via
// New with a mock transport, every request it sends is answered in memory.
type Client struct {
	BaseURL string
	Client  *http.Client
	// AccessToken, if set, is sent as a Bearer Authorization header by default.
	AccessToken string
	// True to enable verbose logging
	Debug bool
}

// New creates a Client sending requests through the given round tripper. A nil
// transport uses http.DefaultTransport, which is almost never what a test wants.
func New(baseURL string, transport http.RoundTripper) *Client {
	cli := &http.Client{
		Timeout: 30 * time.Second,
	}
	if transport != nil {
		cli.Transport = transport
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  cli,
	}
}

// MustDo performs an HTTP request and fails the test if the response is non-2xx.
func (c *Client) MustDo(t ct.TestLike, method string, paths []string, opts ...RequestOpt) *http.Response {
	t.Helper()
	res := c.Do(t, method, paths, opts...)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		ct.Fatalf(t, "Client.MustDo %s %s returned HTTP %d : %s", method, res.Request.URL.String(), res.StatusCode, string(body))
	}
	return res
}

// Do performs an HTTP request, failing the test on transport-level errors. The
// URL is built from the base URL and the escaped path segments.
func (c *Client) Do(t ct.TestLike, method string, paths []string, opts ...RequestOpt) *http.Response {
	t.Helper()
	escaped := make([]string, len(paths))
	for i := range paths {
		escaped[i] = url.PathEscape(paths[i])
	}
	reqURL := c.BaseURL + "/" + strings.Join(escaped, "/")
	req, err := http.NewRequest(method, reqURL, nil)
	if err != nil {
		ct.Fatalf(t, "Client.Do failed to create http.NewRequest: %s", err)
	}
	// set defaults before RequestOpts
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}
	// set functional options
	for _, o := range opts {
		o(req)
	}
	// set defaults after RequestOpts
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	// debug log the request
	if c.Debug {
		t.Logf("Making %s request to %s", method, req.URL)
		contentType := req.Header.Get("Content-Type")
		if contentType == "application/json" || strings.HasPrefix(contentType, "text/") {
			if req.Body != nil {
				body, _ := io.ReadAll(req.Body)
				t.Logf("Request body: %s", string(body))
				req.Body = io.NopCloser(bytes.NewBuffer(body))
			}
		} else if contentType != "" {
			t.Logf("Request body: <binary:%s>", contentType)
		}
	}
	res, err := c.Client.Do(req)
	if err != nil {
		ct.Fatalf(t, "Client.Do response returned error: %s", err)
	}
	// debug log the response
	if c.Debug && res != nil {
		dump, err := httputil.DumpResponse(res, true)
		if err != nil {
			ct.Fatalf(t, "Client.Do failed to dump response body: %s", err)
		}
		t.Logf("%s", string(dump))
	}
	return res
}

// WithRawBody sets the HTTP request body to `body`
func WithRawBody(body []byte) RequestOpt {
	return func(req *http.Request) {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			r := bytes.NewReader(body)
			return io.NopCloser(r), nil
		}
		// we need to manually set this because we don't set the body
		// in http.NewRequest due to using functional options, and only in NewRequest
		// does the stdlib set this for us.
		req.ContentLength = int64(len(body))
	}
}

// WithContentType sets the HTTP request Content-Type header to `cType`
func WithContentType(cType string) RequestOpt {
	return func(req *http.Request) {
		req.Header.Set("Content-Type", cType)
	}
}

// WithJSONBody sets the HTTP request body to the JSON serialised form of `obj`
func WithJSONBody(t ct.TestLike, obj interface{}) RequestOpt {
	return func(req *http.Request) {
		t.Helper()
		b, err := json.Marshal(obj)
		if err != nil {
			ct.Fatalf(t, "Client.Do failed to marshal JSON body: %s", err)
		}
		WithRawBody(b)(req)
	}
}

// WithQueries sets the query parameters on the request.
func WithQueries(q url.Values) RequestOpt {
	return func(req *http.Request) {
		req.URL.RawQuery = q.Encode()
	}
}

// WithAuth sets the Authorization header to the given scheme and credentials,
// e.g. WithAuth("Bearer", "wooga").
func WithAuth(scheme, credentials string) RequestOpt {
	return func(req *http.Request) {
		req.Header.Set("Authorization", scheme+" "+credentials)
	}
}
