package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/wirematch/wirematch/ct"
	"github.com/wirematch/wirematch/match"
)

// MultipartBody builds a multipart/form-data request body part by part. It
// implements match.PartSource, so a mock transport captures the parts directly
// with their original stream handles: file streams are only consumed if the
// body is actually serialised onto a wire.
type MultipartBody struct {
	boundary string
	parts    []match.Part
}

// NewMultipartBody creates an empty multipart body with a random boundary.
func NewMultipartBody() *MultipartBody {
	return &MultipartBody{
		boundary: multipart.NewWriter(io.Discard).Boundary(),
	}
}

// AddText appends a text field.
func (m *MultipartBody) AddText(name, value string) *MultipartBody {
	m.parts = append(m.parts, match.Part{
		Disposition: fmt.Sprintf(`form-data; name=%q`, name),
		Name:        name,
		ContentType: "text/plain; charset=utf-8",
		Text:        value,
	})
	return m
}

// AddJSON appends a field carrying the JSON serialised form of obj.
func (m *MultipartBody) AddJSON(t ct.TestLike, name string, obj interface{}) *MultipartBody {
	t.Helper()
	b, err := json.Marshal(obj)
	if err != nil {
		ct.Fatalf(t, "MultipartBody.AddJSON failed to marshal JSON part: %s", err)
	}
	m.parts = append(m.parts, match.Part{
		Disposition: fmt.Sprintf(`form-data; name=%q`, name),
		Name:        name,
		ContentType: "application/json",
		Text:        string(b),
	})
	return m
}

// AddFile appends a stream-backed file field. The stream is kept as a handle,
// unread, until the body is serialised; match.MultipartFile compares it by
// identity against the stream found in the captured body.
func (m *MultipartBody) AddFile(name, filename string, stream io.Reader) *MultipartBody {
	m.parts = append(m.parts, match.Part{
		Disposition: fmt.Sprintf(`form-data; name=%q; filename=%q`, name, filename),
		Name:        name,
		Filename:    filename,
		ContentType: "application/octet-stream",
		Stream:      stream,
	})
	return m
}

// ContentType returns the multipart/form-data content type with this body's boundary.
func (m *MultipartBody) ContentType() string {
	return "multipart/form-data; boundary=" + m.boundary
}

// MultipartParts implements match.PartSource.
func (m *MultipartBody) MultipartParts() []match.Part {
	return m.parts
}

// serialize renders the wire form, consuming any file streams.
func (m *MultipartBody) serialize() (io.Reader, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(m.boundary); err != nil {
		return nil, err
	}
	for _, p := range m.parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", p.Disposition)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if p.IsText() {
			if _, err := io.WriteString(pw, p.Text); err != nil {
				return nil, err
			}
		} else if _, err := io.Copy(pw, p.Stream); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// WithMultipartBody sets the HTTP request body to the multipart body. The body
// serialises lazily on first read, so against a mock transport the file streams
// are never consumed.
func WithMultipartBody(m *MultipartBody) RequestOpt {
	return func(req *http.Request) {
		req.Body = &multipartReader{body: m}
		req.ContentLength = -1
		req.Header.Set("Content-Type", m.ContentType())
	}
}

type multipartReader struct {
	body *MultipartBody
	wire io.Reader
	err  error
}

func (r *multipartReader) Read(p []byte) (int, error) {
	if r.wire == nil && r.err == nil {
		r.wire, r.err = r.body.serialize()
	}
	if r.err != nil {
		return 0, r.err
	}
	return r.wire.Read(p)
}

func (r *multipartReader) Close() error {
	return nil
}

// MultipartParts implements match.PartSource, letting capture reach the parts
// without consuming the body.
func (r *multipartReader) MultipartParts() []match.Part {
	return r.body.MultipartParts()
}

var _ match.PartSource = (*MultipartBody)(nil)
var _ match.PartSource = (*multipartReader)(nil)
