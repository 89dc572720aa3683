package match

import (
	"io"
	"mime"
	"strings"

	"github.com/tidwall/gjson"
)

// MultipartJSON returns a matcher which will check that the request body is
// multipart and contains a JSON part (declared content type application/json)
// satisfying shape. A nil shape only requires that the part parses as JSON.
func MultipartJSON(shape *Shape) Request {
	return func(req *CapturedRequest) error {
		if err := requireMultipart("MultipartJSON", req); err != nil {
			return err
		}
		var jsonPart *Part
		for i := range req.Body.Parts {
			mediaType, _, err := mime.ParseMediaType(req.Body.Parts[i].ContentType)
			if err == nil && mediaType == "application/json" {
				jsonPart = &req.Body.Parts[i]
				break
			}
		}
		if jsonPart == nil {
			return failf(ExpectedPresence, "MultipartJSON: no part with content type application/json")
		}
		if !jsonPart.IsText() {
			return failf(TypeMismatch, "MultipartJSON: JSON part is stream-backed, not text")
		}
		if !gjson.Valid(jsonPart.Text) {
			return failf(TypeMismatch, "MultipartJSON: part is not valid JSON: %s", truncate(jsonPart.Text))
		}
		if shape == nil {
			return nil
		}
		return shape.Match(gjson.Parse(jsonPart.Text))
	}
}

// MultipartField returns a matcher which will check that the request body is
// multipart and contains a text part under the given field name whose content
// equals value exactly.
func MultipartField(name, value string) Request {
	return func(req *CapturedRequest) error {
		if err := requireMultipart("MultipartField", req); err != nil {
			return err
		}
		p := findPart(req.Body.Parts, name, "")
		if p == nil {
			return failf(ExpectedPresence, "MultipartField: no part named '%s'", name)
		}
		if !p.IsText() {
			return failf(TypeMismatch, "MultipartField: part '%s' is stream-backed, not text", name)
		}
		if p.Text != value {
			return failf(ValueMismatch, "MultipartField: part '%s' got '%s' want '%s'", name, p.Text, value)
		}
		return nil
	}
}

// MultipartFile returns a matcher which will check that the request body is
// multipart and contains a stream part under the given field name and filename
// carrying exactly the given stream.
//
// The stream comparison is by reference identity, not content: a reader over
// byte-for-byte identical content is not equal unless it is the same instance
// supplied here. A part whose name matches but whose filename does not is
// reported as missing, not as a value mismatch.
func MultipartFile(name, filename string, stream io.Reader) Request {
	return func(req *CapturedRequest) error {
		if err := requireMultipart("MultipartFile", req); err != nil {
			return err
		}
		p := findPart(req.Body.Parts, name, filename)
		if p == nil {
			return failf(ExpectedPresence, "MultipartFile: no part named '%s' with filename '%s'", name, filename)
		}
		if p.IsText() {
			return failf(TypeMismatch, "MultipartFile: part '%s' is text, not stream-backed", name)
		}
		if p.Stream != stream {
			return failf(ValueMismatch, "MultipartFile: part '%s' does not carry the stream supplied at setup", name)
		}
		return nil
	}
}

func requireMultipart(prefix string, req *CapturedRequest) error {
	switch req.Body.Kind {
	case BodyAbsent:
		return failf(ExpectedPresence, "%s: request has no body", prefix)
	case BodyOpaque:
		return failf(TypeMismatch, "%s: request body is %s, not multipart", prefix, req.Body.ContentType)
	}
	return nil
}

// findPart locates the first part whose raw disposition text contains the given
// name (and filename, if non-empty) as quoted parameters. The lookup is a
// substring search, not a parsed-parameter comparison: a lookup name that is a
// prefix of another field's name will falsely match it. Preserved as documented
// behaviour; do not quietly replace with exact parameter matching.
func findPart(parts []Part, name, filename string) *Part {
	for i := range parts {
		disp := parts[i].Disposition
		if !strings.Contains(disp, `name="`+name) {
			continue
		}
		if filename != "" && !strings.Contains(disp, `filename="`+filename) {
			continue
		}
		return &parts[i]
	}
	return nil
}
