// Package webform decodes application/x-www-form-urlencoded and
// multipart/form-data request bodies, grounded on
// original_source/fooster/web/form.py. No example repo in the pack
// carries a third-party multipart parser, so this mixin is the one
// built on the standard library (net/url, mime/multipart) rather than
// an ecosystem dependency — the idiomatic choice here.
package webform

import (
	"bytes"
	"errors"
	"mime"
	"mime/multipart"
	"net/url"
)

// Values is a multi-valued form-field map; each key's values keep the
// order they appeared in. Keys are case-sensitive, and Get returns the
// first value where web.Header.Get returns the last.
type Values map[string][]string

// Get returns the first value for key, or "" if absent.
func (v Values) Get(key string) string {
	vs := v[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// DecodeURLEncoded parses an application/x-www-form-urlencoded body.
func DecodeURLEncoded(body []byte) (Values, error) {
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	return Values(vals), nil
}

// DecodeMultipart parses a multipart/form-data body given its
// Content-Type header value (which carries the boundary parameter).
// File parts are returned as their raw bytes keyed by field name;
// field parts are merged into the returned Values.
func DecodeMultipart(contentType string, body []byte) (Values, map[string][]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, nil, err
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, nil, errNoBoundary
	}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	values := make(Values)
	files := make(map[string][]byte)

	for {
		part, perr := mr.NextPart()
		if perr != nil {
			break
		}
		name := part.FormName()
		data, rerr := readAll(part)
		part.Close()
		if rerr != nil {
			return nil, nil, rerr
		}
		if part.FileName() != "" {
			files[name] = data
		} else {
			values[name] = append(values[name], string(data))
		}
	}

	return values, files, nil
}

func readAll(p *multipart.Part) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(p)
	return buf.Bytes(), err
}

var errNoBoundary = errors.New("webform: missing multipart boundary")
