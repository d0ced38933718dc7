// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	apperrors "github.com/alchemorsel/kitchen/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the response status
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// JSONResponse asserts a JSON content type and decodes the body into target
func (ha *HTTPAssertions) JSONResponse(resp *http.Response, target interface{}, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	contentType := resp.Header.Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	err := json.NewDecoder(resp.Body).Decode(target)
	require.NoError(ha.t, err, msgAndArgs...)
}

// ErrorResponse asserts an API error body with the given code
func (ha *HTTPAssertions) ErrorResponse(resp *http.Response, expectedCode apperrors.ErrorCode, msgAndArgs ...interface{}) apperrors.ErrorResponse {
	var body apperrors.ErrorResponse
	ha.JSONResponse(resp, &body)
	assert.Equal(ha.t, expectedCode, body.Error.Code, msgAndArgs...)
	return body
}

// Header asserts a header value
func (ha *HTTPAssertions) Header(resp *http.Response, headerName, expectedValue string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedValue, resp.Header.Get(headerName), msgAndArgs...)
}

// HasHeader asserts that a header is present
func (ha *HTTPAssertions) HasHeader(resp *http.Response, headerName string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	_, exists := resp.Header[http.CanonicalHeaderKey(headerName)]
	assert.True(ha.t, exists, "Response should have header %s", headerName)
}

// SecurityHeaders asserts the headers every page carries
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response) {
	for _, header := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
		"Content-Security-Policy",
	} {
		ha.HasHeader(resp, header)
	}
}

// HTMLAssertions inspects rendered markup
type HTMLAssertions struct {
	t *testing.T
}

// NewHTMLAssertions creates a new HTML assertions helper
func NewHTMLAssertions(t *testing.T) *HTMLAssertions {
	return &HTMLAssertions{t: t}
}

// Document parses an HTML body
func (ha *HTMLAssertions) Document(body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(ha.t, err, "Body should be valid HTML")
	return doc
}

// Count asserts how many elements match selector
func (ha *HTMLAssertions) Count(doc *goquery.Document, selector string, expected int, msgAndArgs ...interface{}) {
	assert.Equal(ha.t, expected, doc.Find(selector).Length(), msgAndArgs...)
}

// Exists asserts that selector matches at least one element
func (ha *HTMLAssertions) Exists(doc *goquery.Document, selector string) *goquery.Selection {
	sel := doc.Find(selector)
	assert.Positive(ha.t, sel.Length(), "expected %s to match", selector)
	return sel
}

// Absent asserts that selector matches nothing
func (ha *HTMLAssertions) Absent(doc *goquery.Document, selector string) {
	assert.Zero(ha.t, doc.Find(selector).Length(), "expected %s not to match", selector)
}

// Text asserts that the text of selector contains expected
func (ha *HTMLAssertions) Text(doc *goquery.Document, selector, expected string) {
	assert.Contains(ha.t, strings.TrimSpace(doc.Find(selector).Text()), expected, "text of %s", selector)
}

// Texts returns the trimmed text of each element matching selector
func (ha *HTMLAssertions) Texts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// Attr asserts an attribute value of the first element matching selector
func (ha *HTMLAssertions) Attr(doc *goquery.Document, selector, attr, expected string) {
	value, ok := doc.Find(selector).First().Attr(attr)
	assert.True(ha.t, ok, "%s should have attribute %s", selector, attr)
	assert.Equal(ha.t, expected, value, "%s[%s]", selector, attr)
}
