package webform

import (
	"bytes"
	"mime/multipart"
	"testing"
)

func TestDecodeURLEncoded(t *testing.T) {
	vals, err := DecodeURLEncoded([]byte("name=ada&tag=a&tag=b"))
	if err != nil {
		t.Fatalf("DecodeURLEncoded: %v", err)
	}
	if vals.Get("name") != "ada" {
		t.Fatalf("Get(name) = %q, want ada", vals.Get("name"))
	}
	if len(vals["tag"]) != 2 {
		t.Fatalf("tag values = %v, want 2 entries", vals["tag"])
	}
}

func TestDecodeURLEncodedEmptyBody(t *testing.T) {
	vals, err := DecodeURLEncoded([]byte(""))
	if err != nil {
		t.Fatalf("DecodeURLEncoded: %v", err)
	}
	if vals.Get("anything") != "" {
		t.Fatal("expected no values from an empty body")
	}
}

func buildMultipart(t *testing.T) (contentType string, body []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("name", "ada"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	part, err := w.CreateFormFile("upload", "hello.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("file contents"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return w.FormDataContentType(), buf.Bytes()
}

func TestDecodeMultipartSeparatesFieldsAndFiles(t *testing.T) {
	contentType, body := buildMultipart(t)
	values, files, err := DecodeMultipart(contentType, body)
	if err != nil {
		t.Fatalf("DecodeMultipart: %v", err)
	}
	if values.Get("name") != "ada" {
		t.Fatalf("field name = %q, want ada", values.Get("name"))
	}
	if string(files["upload"]) != "file contents" {
		t.Fatalf("file upload = %q, want file contents", files["upload"])
	}
}

func TestDecodeMultipartMissingBoundary(t *testing.T) {
	_, _, err := DecodeMultipart("multipart/form-data", []byte("irrelevant"))
	if err == nil {
		t.Fatal("expected an error for a Content-Type without a boundary")
	}
}
