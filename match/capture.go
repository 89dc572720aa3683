package match

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// BodyKind tags the encoding of a captured request body.
type BodyKind int

const (
	// BodyAbsent means the request carried no body at all.
	BodyAbsent BodyKind = iota
	// BodyOpaque means the request carried raw bytes with a content type.
	BodyOpaque
	// BodyMultipart means the request carried a multipart/form-data body.
	BodyMultipart
)

func (k BodyKind) String() string {
	switch k {
	case BodyAbsent:
		return "absent"
	case BodyOpaque:
		return "opaque"
	case BodyMultipart:
		return "multipart"
	}
	return "unknown"
}

// Body is the tagged body of a captured request. Bytes is populated for opaque
// bodies, Parts for multipart bodies.
type Body struct {
	Kind        BodyKind
	ContentType string
	Bytes       []byte
	Parts       []Part
}

// Part is one named section of a multipart body. The payload is either inline
// text or a stream handle; Stream is nil for text parts. For stream parts the
// handle has single-pass semantics: a matcher never reads it, it only compares.
type Part struct {
	// Disposition is the raw Content-Disposition header value for this part,
	// e.g. `form-data; name="file"; filename="report.txt"`. Part lookups are
	// substring searches over this text.
	Disposition string
	Name        string
	Filename    string
	ContentType string
	Text        string
	Stream      io.Reader
}

// IsText reports whether the part payload is inline text rather than a stream.
func (p Part) IsText() bool {
	return p.Stream == nil
}

// PartSource is implemented by request bodies that can hand over their multipart
// parts directly, keeping the original stream handles intact. Capture prefers
// this over re-parsing wire bytes: a part re-read from the wire carries a fresh
// reader, which can never be the stream instance a test supplied at setup time.
type PartSource interface {
	MultipartParts() []Part
}

// CapturedRequest is an immutable snapshot of an outgoing request, taken once per
// dispatch. Matchers are pure reads over it; the same snapshot may be evaluated
// against many expectations in sequence.
type CapturedRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   Body
}

// Capture snapshots req for matching. The request body, if any, is read in full
// and restored so the request remains usable afterwards. Bodies implementing
// PartSource are captured through that interface without being consumed.
func Capture(req *http.Request) (*CapturedRequest, error) {
	c := &CapturedRequest{
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header.Clone(),
	}
	if req.Body == nil || req.Body == http.NoBody {
		return c, nil
	}
	if ps, ok := req.Body.(PartSource); ok {
		c.Body = Body{
			Kind:        BodyMultipart,
			ContentType: req.Header.Get("Content-Type"),
			Parts:       ps.MultipartParts(),
		}
		return c, nil
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("Capture: failed to read request body: %s", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return c, nil
	}
	contentType := req.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		parts, err := parseParts(raw, params["boundary"])
		if err != nil {
			return nil, fmt.Errorf("Capture: %s", err)
		}
		c.Body = Body{Kind: BodyMultipart, ContentType: contentType, Parts: parts}
		return c, nil
	}
	c.Body = Body{Kind: BodyOpaque, ContentType: contentType, Bytes: raw}
	return c, nil
}

// parseParts re-reads multipart parts from wire bytes. Stream-valued parts come
// back with fresh readers over the wire payload, so identity comparisons against
// the stream supplied at setup time will not succeed on this path.
func parseParts(raw []byte, boundary string) ([]Part, error) {
	if boundary == "" {
		return nil, fmt.Errorf("multipart body without boundary parameter")
	}
	mr := multipart.NewReader(bytes.NewReader(raw), boundary)
	var parts []Part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse multipart body: %s", err)
		}
		payload, err := io.ReadAll(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart part %q: %s", p.FormName(), err)
		}
		part := Part{
			Disposition: p.Header.Get("Content-Disposition"),
			Name:        p.FormName(),
			Filename:    p.FileName(),
			ContentType: p.Header.Get("Content-Type"),
		}
		if part.Filename != "" {
			part.Stream = bytes.NewReader(payload)
		} else {
			part.Text = string(payload)
		}
		parts = append(parts, part)
	}
}
