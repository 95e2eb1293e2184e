package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/export"
	"github.com/baukit/gaebconv/pkg/ingest"
)

func newTestServer() *Server {
	return NewServer(ingest.NewPipeline(nil), boq.NewCollection(), export.Options{}, nil)
}

func multipartUpload(t *testing.T, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUpload(t *testing.T) {
	s := newTestServer()
	rec := do(s, multipartUpload(t, "lv.txt", "Projekt: Neubau\n1.1 Mauerwerk 20m² 15,50€\n"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var summary struct {
		FileName       string `json:"file_name"`
		Positions      int    `json:"positions"`
		TotalPositions int    `json:"total_positions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if summary.FileName != "lv.txt" || summary.TotalPositions != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	s := newTestServer()
	rec := do(s, multipartUpload(t, "lv.pdf", "whatever"))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestUploadWithoutFileField(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("no multipart"))
	rec := do(s, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReUploadReplacesDocument(t *testing.T) {
	s := newTestServer()
	do(s, multipartUpload(t, "lv.txt", "1.1 Mauerwerk 20m²\n"))
	do(s, multipartUpload(t, "lv.txt", "1.1 Mauerwerk 20m²\n1.2 Beton 5m³\n"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	var list []struct {
		FileName       string `json:"file_name"`
		TotalPositions int    `json:"total_positions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("documents = %d, want 1 after replacement", len(list))
	}
	if list[0].TotalPositions != 2 {
		t.Errorf("TotalPositions = %d, want 2 (second upload)", list[0].TotalPositions)
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestServer()
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestGetDocument(t *testing.T) {
	s := newTestServer()
	do(s, multipartUpload(t, "lv.txt", "1.1 Mauerwerk 20m²\n"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents/lv.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc boq.ParsedDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if doc.FileName != "lv.txt" || len(doc.Positions) != 1 {
		t.Errorf("doc = %s with %d positions", doc.FileName, len(doc.Positions))
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/documents/missing.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestServer()
	do(s, multipartUpload(t, "lv.txt", "1.1 Mauerwerk 20m²\n"))

	rec := do(s, httptest.NewRequest(http.MethodDelete, "/api/documents/lv.txt", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	rec = do(s, httptest.NewRequest(http.MethodDelete, "/api/documents/lv.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestExportWithoutDocuments(t *testing.T) {
	s := newTestServer()

	for _, path := range []string{"/api/export/xlsx", "/api/export/csv"} {
		rec := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusConflict {
			t.Errorf("%s status = %d, want 409", path, rec.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer()
	do(s, multipartUpload(t, "lv.txt", "Projekt: Neubau\n1.1 Mauerwerk 20m² 15,50€\n"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/export/csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "Mauerwerk") {
		t.Errorf("body missing position row:\n%s", rec.Body.String())
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer()
	do(s, multipartUpload(t, "lv.txt", "1.1 Mauerwerk 20m²\n"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/export/xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}
