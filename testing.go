package surf

import (
	"io"
	"net/http"
	"strings"
)

// RoundTripFunc adapts a function to http.RoundTripper, for stubbing the
// engine's HTTP client in tests:
//
//	client := surf.StubClient(func(r *http.Request) (*http.Response, error) {
//	    return surf.HTMLResponse(200, "<p>stubbed</p>"), nil
//	})
//	eng := surf.New(surf.WithHTTPClient(client))
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// StubClient returns an *http.Client whose transport is fn.
func StubClient(fn RoundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

// HTMLResponse builds a text/html response with the given status and body,
// suitable for returning from a RoundTripFunc.
func HTMLResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{ContentType()}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
