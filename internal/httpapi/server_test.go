package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ragprompt/internal/domain"
	"ragprompt/internal/logging"
	"ragprompt/internal/service"
	"ragprompt/internal/uploads"
)

type fakeGenerator struct {
	got service.Request
	err error
}

func (g *fakeGenerator) Generate(_ context.Context, req service.Request) (service.Result, error) {
	g.got = req
	if g.err != nil {
		return service.Result{}, g.err
	}
	return service.Result{GeneratedText: "pitch for " + req.FileName}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *uploads.Store, *fakeGenerator) {
	t.Helper()
	store := uploads.NewStore(t.TempDir())
	gen := &fakeGenerator{}
	srv := httptest.NewServer(New(store, gen, logging.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv, store, gen
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.Error
}

func TestUploadAndList(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, ct := multipartBody(t, "file", "my patent.pdf", "%PDF-1.4")
	resp, err := http.Post(srv.URL+"/upload", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var up map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&up)
	if up["filename"] != "my_patent.pdf" {
		t.Errorf("upload response = %v", up)
	}

	resp, err = http.Get(srv.URL + "/list-files")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list map[string][]string
	_ = json.NewDecoder(resp.Body).Decode(&list)
	if len(list["files"]) != 1 || list["files"][0] != "my_patent.pdf" {
		t.Errorf("list = %v", list)
	}
}

func TestUploadMissingFile(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body, ct := multipartBody(t, "document", "a.pdf", "x")
	resp, err := http.Post(srv.URL+"/upload", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e.Message != "No file part" {
		t.Errorf("error = %+v", e)
	}
}

func TestListEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/list-files")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list map[string][]string
	_ = json.NewDecoder(resp.Body).Decode(&list)
	if list["files"] == nil || len(list["files"]) != 0 {
		t.Errorf("list = %v", list)
	}
}

func TestProcess(t *testing.T) {
	srv, _, gen := newTestServer(t)
	payload := `{"file_name":"p.pdf","document_type":"abstract","model_name":"mistral","additional_info":"short"}`
	resp, err := http.Post(srv.URL+"/process", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["generated_text"] != "pitch for p.pdf" {
		t.Errorf("response = %v", out)
	}
	want := service.Request{FileName: "p.pdf", DocumentType: "abstract", Model: "mistral", AdditionalInfo: "short"}
	if gen.got.FileName != want.FileName || gen.got.DocumentType != want.DocumentType || gen.got.Model != want.Model || gen.got.AdditionalInfo != want.AdditionalInfo {
		t.Errorf("request = %+v", gen.got)
	}
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		status   int
		wantKind string
	}{
		{"not json", "file_name=x", nil, http.StatusBadRequest, "bad_request"},
		{"missing file name", `{}`, nil, http.StatusBadRequest, "bad_request"},
		{"unknown file", `{"file_name":"x.pdf"}`, fmt.Errorf("resolve: %w", uploads.ErrNotFound), http.StatusNotFound, "file_not_found"},
		{"no text", `{"file_name":"x.pdf"}`, domain.Errorf(domain.KindNoExtractableText, "index document", "empty"), http.StatusUnprocessableEntity, "no_extractable_text"},
		{"embedding down", `{"file_name":"x.pdf"}`, domain.Wrap(domain.KindEmbedding, "embed", errors.New("refused")), http.StatusBadGateway, "embedding_error"},
		{"generator down", `{"file_name":"x.pdf"}`, fmt.Errorf("%w: refused", service.ErrGeneration), http.StatusBadGateway, "generation_error"},
		{"unexpected", `{"file_name":"x.pdf"}`, errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, gen := newTestServer(t)
			gen.err = tt.err
			resp, err := http.Post(srv.URL+"/process", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if e := decodeError(t, resp); e.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", e.Kind, tt.wantKind)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/process", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/process")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
