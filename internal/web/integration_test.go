package web_test

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vbonduro/photato/internal/config"
	"github.com/vbonduro/photato/internal/db"
	"github.com/vbonduro/photato/internal/photostore/local"
	"github.com/vbonduro/photato/internal/service"
	"github.com/vbonduro/photato/internal/store"
	"github.com/vbonduro/photato/internal/web"
)

const testMaxUpload = 1 << 20

type photoJSON struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
}

type listJSON struct {
	Success bool `json:"success"`
	Photos  struct {
		Count int         `json:"count"`
		Rows  []photoJSON `json:"rows"`
	} `json:"photos"`
}

type uploadJSON struct {
	Success bool      `json:"success"`
	Photo   photoJSON `json:"photo"`
	Message string    `json:"message"`
}

// newTestServer sets up a real web.Server backed by in-memory SQLite and a
// temp-dir photo store. Returns the test server and the upload directory.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database, err := db.OpenForTesting()
	if err != nil {
		t.Fatalf("OpenForTesting: %v", err)
	}

	uploadDir := t.TempDir()
	stg, err := local.NewLocalPhotoStore(uploadDir)
	if err != nil {
		t.Fatalf("NewLocalPhotoStore: %v", err)
	}

	svc := service.NewPhotoService(store.NewPhotoStore(database, config.DialectSQLite), stg, slog.Default())
	srv := httptest.NewServer(web.NewServer(svc, testMaxUpload, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv, uploadDir
}

// buildMultipartBody creates a multipart/form-data body with one file part.
func buildMultipartBody(t *testing.T, field, filename, mimeType string, data []byte) (body *bytes.Buffer, contentType string) {
	t.Helper()
	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("caption", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if mimeType != "" {
		h.Set("Content-Type", mimeType)
	}
	fw, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write image data: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func upload(t *testing.T, srv *httptest.Server, filename, mimeType string, data []byte) (int, uploadJSON) {
	t.Helper()
	body, contentType := buildMultipartBody(t, "photo", filename, mimeType, data)
	resp, err := http.Post(srv.URL+"/photo", contentType, body)
	if err != nil {
		t.Fatalf("POST /photo: %v", err)
	}
	defer resp.Body.Close()

	var out uploadJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp.StatusCode, out
}

func list(t *testing.T, srv *httptest.Server) listJSON {
	t.Helper()
	resp, err := http.Get(srv.URL + "/photo")
	if err != nil {
		t.Fatalf("GET /photo: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /photo status %d", resp.StatusCode)
	}
	var out listJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	return out
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return b
}

func TestIntegration_Index(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(b)); got != `{"app":"photato"}` {
		t.Errorf("body = %s, want {\"app\":\"photato\"}", got)
	}
}

func TestIntegration_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

// TestIntegration_EmptyListing verifies the exact shape of an empty listing:
// rows must be an empty array, never null.
func TestIntegration_EmptyListing(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/photo")
	if err != nil {
		t.Fatalf("GET /photo: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	want := `{"success":true,"photos":{"count":0,"rows":[]}}`
	if got := strings.TrimSpace(string(b)); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

// TestIntegration_UploadListFetch covers the photo.png scenario end to end.
func TestIntegration_UploadListFetch(t *testing.T) {
	srv, uploadDir := newTestServer(t)
	data := randomBytes(t, 1024)

	status, up := upload(t, srv, "photo.png", "image/png", data)
	if status != http.StatusOK || !up.Success {
		t.Fatalf("upload status %d: %+v", status, up)
	}
	if up.Photo.Size != 1024 {
		t.Errorf("size = %d, want 1024", up.Photo.Size)
	}
	if up.Photo.OriginalName != "photo.png" {
		t.Errorf("originalname = %q, want photo.png", up.Photo.OriginalName)
	}
	if up.Photo.MimeType != "image/png" {
		t.Errorf("mimetype = %q, want image/png", up.Photo.MimeType)
	}
	if up.Photo.Path != filepath.Join(uploadDir, up.Photo.Filename) {
		t.Errorf("path = %q, want it under %q", up.Photo.Path, uploadDir)
	}

	listing := list(t, srv)
	if listing.Photos.Count != 1 || len(listing.Photos.Rows) != 1 {
		t.Fatalf("listing = %+v, want one row", listing)
	}
	if listing.Photos.Rows[0] != up.Photo {
		t.Errorf("listed row %+v != uploaded %+v", listing.Photos.Rows[0], up.Photo)
	}

	resp, err := http.Get(srv.URL + "/photo/" + up.Photo.Filename)
	if err != nil {
		t.Fatalf("GET photo: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET photo status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, data) {
		t.Errorf("fetched %d bytes that differ from the uploaded 1024", len(got))
	}
}

func TestIntegration_UploadUnsupportedType(t *testing.T) {
	srv, uploadDir := newTestServer(t)

	status, up := upload(t, srv, "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if up.Success || up.Message == "" {
		t.Errorf("response = %+v, want success=false with a message", up)
	}

	if got := list(t, srv).Photos.Count; got != 0 {
		t.Errorf("count = %d after rejected upload, want 0", got)
	}

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("unexpected blob %q after rejected upload", e.Name())
		}
	}
}

func TestIntegration_UploadMissingPhotoField(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := buildMultipartBody(t, "image", "photo.jpg", "image/jpeg", []byte{0xFF, 0xD8})
	resp, err := http.Post(srv.URL+"/photo", contentType, body)
	if err != nil {
		t.Fatalf("POST /photo: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIntegration_UploadNotMultipart(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/photo", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /photo: %v", err)
	}
	defer resp.Body.Close()

	var out uploadJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || out.Success {
		t.Errorf("got %d %+v, want 400 success=false", resp.StatusCode, out)
	}
}

func TestIntegration_UploadTooLarge(t *testing.T) {
	srv, _ := newTestServer(t)

	status, up := upload(t, srv, "huge.jpg", "image/jpeg", make([]byte, testMaxUpload+1))
	if status != http.StatusBadRequest || up.Success {
		t.Fatalf("got %d %+v, want 400 success=false", status, up)
	}
	if got := list(t, srv).Photos.Count; got != 0 {
		t.Errorf("count = %d after oversized upload, want 0", got)
	}
}

func TestIntegration_FetchUnknownPhoto(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, p := range []string{
		"/photo/doesnotexist",
		"/photo/..%2F..%2Fetc%2Fpasswd",
		"/photo/%2Fetc%2Fpasswd",
		"/photo/a%2Fb",
	} {
		resp, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", p, resp.StatusCode)
		}
	}
}

func TestIntegration_ConcurrentIdenticalUploads(t *testing.T) {
	srv, _ := newTestServer(t)
	data := randomBytes(t, 4096)

	var wg sync.WaitGroup
	results := make([]uploadJSON, 2)
	statuses := make([]int, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], results[i] = upload(t, srv, "same.jpg", "image/jpeg", data)
		}(i)
	}
	wg.Wait()

	for i, s := range statuses {
		if s != http.StatusOK {
			t.Fatalf("upload %d status %d: %+v", i, s, results[i])
		}
	}
	if results[0].Photo.Filename == results[1].Photo.Filename {
		t.Fatalf("both uploads stored as %q", results[0].Photo.Filename)
	}

	for _, r := range results {
		resp, err := http.Get(srv.URL + "/photo/" + r.Photo.Filename)
		if err != nil {
			t.Fatalf("GET photo: %v", err)
		}
		got, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if !bytes.Equal(got, data) {
			t.Errorf("photo %s content mismatch", r.Photo.Filename)
		}
	}

	if got := list(t, srv).Photos.Count; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestIntegration_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/photo", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /photo: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
