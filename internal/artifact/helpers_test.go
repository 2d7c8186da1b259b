package artifact

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

const (
	testKey    = "key-abc"
	testSecret = "secret-xyz"
	testToken  = "tok-123"
)

type archiveEntry struct {
	name string
	body string
	mode int64
	link string
	dir  bool
}

func buildTar(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr.Typeflag, hdr.Size = tar.TypeDir, 0
		case e.link != "":
			hdr.Typeflag, hdr.Linkname, hdr.Size = tar.TypeSymlink, e.link, 0
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header: %v", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write tar body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func buildTarGz(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(buildTar(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func buildTarZst(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(buildTar(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func buildZip(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		hdr.SetMode(os.FileMode(mode).Perm())
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeService emulates the token, file list and file endpoints.
type fakeService struct {
	t        *testing.T
	files    []FileEntry
	payloads map[string][]byte

	tokenStatus int
	listStatus  int
	listBody    string

	mu    sync.Mutex
	calls []string
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{t: t, payloads: map[string][]byte{}}
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) start() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.record("token")
		if r.Method != http.MethodPost {
			f.t.Errorf("token endpoint method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			f.t.Errorf("parse token form: %v", err)
		}
		if f.tokenStatus != 0 {
			http.Error(w, `{"error":"invalid_client","error_description":"bad credentials for `+r.PostForm.Get("client_secret")+`"}`, f.tokenStatus)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") != testKey ||
			r.PostForm.Get("client_secret") != testSecret {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token_type":   "Bearer",
			"access_token": testToken,
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/services/download/v1/filelist", func(w http.ResponseWriter, r *http.Request) {
		f.record("filelist")
		if !f.authorized(w, r) {
			return
		}
		if r.URL.Query().Get("product") != "SecureJS" || r.URL.Query().Get("version") != "6.3.0" {
			f.t.Errorf("filelist query = %s", r.URL.RawQuery)
		}
		if f.listStatus != 0 {
			http.Error(w, "forbidden", f.listStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if f.listBody != "" {
			_, _ = w.Write([]byte(f.listBody))
			return
		}
		_ = json.NewEncoder(w).Encode(f.files)
	})

	mux.HandleFunc("/services/download/v1/file", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("filename")
		f.record("file:" + name)
		if !f.authorized(w, r) {
			return
		}
		body, ok := f.payloads[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	})

	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func (f *fakeService) authorized(w http.ResponseWriter, r *http.Request) bool {
	if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func newTestClient(t *testing.T, srv *httptest.Server, v *Verifier) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{APIBase: srv.URL, HTTPClient: srv.Client(), Verifier: v})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}
