package match_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wirematch/wirematch/match"
	"github.com/wirematch/wirematch/must"
)

func TestCaptureAbsentBody(t *testing.T) {
	req := httptest.NewRequest("GET", "https://example.test/widgets", nil)
	c, err := match.Capture(req)
	must.NotError(t, "Capture", err)
	must.Equal(t, c.Body.Kind, match.BodyAbsent, "body kind")
	must.Equal(t, c.Method, "GET", "method")
}

func TestCaptureOpaqueBody(t *testing.T) {
	req := httptest.NewRequest("POST", "https://example.test/widgets", strings.NewReader(`{"value": 0}`))
	req.Header.Set("Content-Type", "application/json")

	c, err := match.Capture(req)
	must.NotError(t, "Capture", err)
	must.Equal(t, c.Body.Kind, match.BodyOpaque, "body kind")
	must.Equal(t, string(c.Body.Bytes), `{"value": 0}`, "body bytes")

	// the request body must be restored after capture
	restored, err := io.ReadAll(req.Body)
	must.NotError(t, "read restored body", err)
	must.Equal(t, string(restored), `{"value": 0}`, "restored body")
}

func TestCaptureDoesNotMutateAcrossEvaluations(t *testing.T) {
	req := httptest.NewRequest("POST", "https://example.test/widgets", strings.NewReader(`{"value": 0}`))
	req.Header.Set("Content-Type", "application/json")
	c, err := match.Capture(req)
	must.NotError(t, "Capture", err)

	// the same snapshot is evaluated against multiple expectations in sequence
	m := match.JSONBody(match.Object().WithProperty("value", match.EqualTo(0)).Build())
	for i := 0; i < 3; i++ {
		if err := m(c); err != nil {
			t.Fatalf("evaluation %d: %s", i, err)
		}
	}
}

func TestCaptureWireMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormField("value")
	must.NotError(t, "CreateFormField", err)
	_, err = io.WriteString(fw, "0")
	must.NotError(t, "write field", err)
	fw, err = w.CreateFormFile("file", "filename.txt")
	must.NotError(t, "CreateFormFile", err)
	_, err = io.WriteString(fw, "file contents")
	must.NotError(t, "write file", err)
	must.NotError(t, "close writer", w.Close())

	req := httptest.NewRequest("POST", "https://example.test/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	c, err := match.Capture(req)
	must.NotError(t, "Capture", err)
	must.Equal(t, c.Body.Kind, match.BodyMultipart, "body kind")
	must.Equal(t, len(c.Body.Parts), 2, "part count")

	must.Equal(t, c.Body.Parts[0].Name, "value", "field name")
	must.Equal(t, c.Body.Parts[0].IsText(), true, "field is text")
	must.Equal(t, c.Body.Parts[0].Text, "0", "field text")

	must.Equal(t, c.Body.Parts[1].Name, "file", "file name")
	must.Equal(t, c.Body.Parts[1].Filename, "filename.txt", "filename")
	must.Equal(t, c.Body.Parts[1].IsText(), false, "file is stream")

	if err := match.MultipartField("value", "0")(c); err != nil {
		t.Fatalf("expected field match on wire-parsed body, got %s", err)
	}
}

// Parts re-read from wire bytes carry fresh readers, so identity matching
// against the stream supplied at setup time correctly fails on this path.
func TestCaptureWireMultipartLosesStreamIdentity(t *testing.T) {
	original := strings.NewReader("file contents")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "filename.txt")
	must.NotError(t, "CreateFormFile", err)
	_, err = io.Copy(fw, strings.NewReader("file contents"))
	must.NotError(t, "write file", err)
	must.NotError(t, "close writer", w.Close())

	req := httptest.NewRequest("POST", "https://example.test/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	c, err := match.Capture(req)
	must.NotError(t, "Capture", err)

	err = match.MultipartFile("file", "filename.txt", original)(c)
	must.ErrorKind(t, err, match.ValueMismatch)
}
