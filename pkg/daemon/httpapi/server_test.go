package httpapi_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/paneo/pkg/daemon/favorites"
	"github.com/jamesainslie/paneo/pkg/daemon/httpapi"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/daemon/store"
	"github.com/jamesainslie/paneo/pkg/paneo/auth"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

type fixture struct {
	a, b    string
	handler http.Handler
	jobs    *jobs.Supervisor
}

func newFixture(t *testing.T, authCfg auth.Config) *fixture {
	t.Helper()

	a, b := t.TempDir(), t.TempDir()
	write(t, filepath.Join(a, "docs", "readme.md"), "# hello")
	write(t, filepath.Join(a, "docs", "notes.txt"), "notes")
	write(t, filepath.Join(a, "photo.bin"), "\x00\x01\x02")

	reg, err := roots.New([]roots.Root{{ID: "root-1", Name: "alpha", Path: a}, {ID: "root-2", Name: "beta", Path: b}})
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "favorites"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	files := filemanager.New(reg)
	sup := jobs.New(jobs.FromManager(files))

	srv := httpapi.New(httpapi.Deps{
		Files:     files,
		Jobs:      sup,
		Favorites: favorites.New(st, reg, nil),
		Auth:      auth.New(authCfg),
	})
	return &fixture{a: a, b: b, handler: srv.Handler(), jobs: sup}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRoots(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodGet, "/api/fs/roots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"roots":[{"id":"root-1","name":"alpha"},{"id":"root-2","name":"beta"}]}`, w.Body.String())
}

func TestList(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodGet, "/api/fs/list?rootId=root-1&path=docs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "docs", out["path"])
	assert.Equal(t, "", out["parentPath"])
	entries := out["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "notes.txt", entries[0].(map[string]any)["name"])
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, auth.Config{})

	tests := []struct {
		name   string
		method string
		target string
		body   any
		code   int
	}{
		{"missing root id", http.MethodGet, "/api/fs/list", nil, http.StatusBadRequest},
		{"unknown root", http.MethodGet, "/api/fs/list?rootId=root-9", nil, http.StatusBadRequest},
		{"traversal", http.MethodGet, "/api/fs/list?rootId=root-1&path=../..", nil, http.StatusBadRequest},
		{"list a file", http.MethodGet, "/api/fs/list?rootId=root-1&path=photo.bin", nil, http.StatusBadRequest},
		{"missing dir", http.MethodGet, "/api/fs/list?rootId=root-1&path=nope", nil, http.StatusNotFound},
		{"binary read", http.MethodGet, "/api/fs/read?rootId=root-1&path=photo.bin", nil, http.StatusBadRequest},
		{"existing dir", http.MethodPost, "/api/fs/mkdir", map[string]string{"rootId": "root-1", "name": "docs"}, http.StatusConflict},
		{"bad name", http.MethodPost, "/api/fs/mkdir", map[string]string{"rootId": "root-1", "name": "a/b"}, http.StatusBadRequest},
		{"delete root", http.MethodPost, "/api/fs/delete", map[string]string{"rootId": "root-1", "path": "."}, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/api/fs/copy-status?jobId=nope", nil, http.StatusNotFound},
		{"missing job id", http.MethodGet, "/api/fs/copy-status", nil, http.StatusBadRequest},
		{"copy onto itself", http.MethodPost, "/api/fs/copy-start", map[string]string{
			"fromRootId": "root-1", "fromPath": "docs", "toRootId": "root-1", "toDirPath": "",
		}, http.StatusBadRequest},
		{"copy missing fields", http.MethodPost, "/api/fs/copy-start", map[string]string{
			"fromRootId": "root-1", "fromPath": "docs", "toRootId": "root-2",
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodPost, "/api/fs/create-file", map[string]string{"rootId": "root-1", "path": "docs", "name": "todo.txt"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/fs/create-file", map[string]string{"rootId": "root-1", "path": "docs", "name": "todo.txt"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/fs/write", map[string]string{"rootId": "root-1", "path": "docs/todo.txt", "content": ""})
	require.Equal(t, http.StatusOK, w.Code, "empty content is allowed")

	w = f.do(t, http.MethodPost, "/api/fs/write", map[string]string{"rootId": "root-1", "path": "docs/todo.txt"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "content is required")

	w = f.do(t, http.MethodPost, "/api/fs/write", map[string]string{"rootId": "root-1", "path": "docs/todo.txt", "content": "buy milk"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/fs/read?rootId=root-1&path=docs/todo.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"path":"docs/todo.txt","content":"buy milk"}`, w.Body.String())
}

func TestMkdirAndDelete(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodPost, "/api/fs/mkdir", map[string]string{"rootId": "root-1", "name": "new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.DirExists(t, filepath.Join(f.a, "new"))

	w = f.do(t, http.MethodPost, "/api/fs/delete", map[string]string{"rootId": "root-1", "path": "new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "permanent", decode(t, w)["method"])
	assert.NoDirExists(t, filepath.Join(f.a, "new"))
}

func TestMetaAndRaw(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodGet, "/api/fs/meta?rootId=root-1&path=docs/readme.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"path":"docs/readme.md","mimeType":"text/markdown","isText":true}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/fs/raw?rootId=root-1&path=docs/readme.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "# hello", w.Body.String())

	w = f.do(t, http.MethodGet, "/api/fs/raw?rootId=root-1&path=docs", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func upload(t *testing.T, f *fixture, id, filePath string, index, total int, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/fs/upload?rootId=root-2&path=", strings.NewReader(body))
	r.Header.Set("x-upload-id", id)
	r.Header.Set("x-file-path", url.PathEscape(filePath))
	r.Header.Set("x-chunk-index", fmt.Sprint(index))
	r.Header.Set("x-total-chunks", fmt.Sprint(total))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func TestUpload(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := upload(t, f, "up-1", "nested dir/file.txt", 0, 2, "hello ")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["completed"])

	w = upload(t, f, "up-1", "nested dir/file.txt", 1, 2, "world")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["completed"])

	data, err := os.ReadFile(filepath.Join(f.b, "nested dir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.NoDirExists(t, filepath.Join(f.b, filemanager.UploadTempDir))

	w = upload(t, f, "bad id!", "x.txt", 0, 1, "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, f, "up-2", "x.txt", 2, 1, "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r := httptest.NewRequest(http.MethodPost, "/api/fs/upload?rootId=root-2", strings.NewReader("x"))
	r.Header.Set("x-upload-id", "up-3")
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing headers")
}

func TestUploadCancel(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := upload(t, f, "up-1", "big.iso", 0, 3, "part")
	require.Equal(t, http.StatusOK, w.Code)
	assert.FileExists(t, filepath.Join(f.b, filemanager.UploadTempDir, "up-1.part"))

	w = f.do(t, http.MethodPost, "/api/fs/upload-cancel", map[string]any{"rootId": "root-2", "uploadIds": []string{"up-1", ""}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["cleaned"])
	assert.NoDirExists(t, filepath.Join(f.b, filemanager.UploadTempDir))
}

func TestDownloadSingleFile(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodGet, "/api/fs/download?rootId=root-1&path=docs/notes.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "notes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")
}

func TestDownloadArchive(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodGet, "/api/fs/download?rootId=root-1&path=docs&path=photo.bin&archiveName=bundle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bundle.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	assert.ElementsMatch(t, []string{"docs/", "docs/notes.txt", "docs/readme.md", "photo.bin"}, names)

	w = f.do(t, http.MethodGet, "/api/fs/download?rootId=root-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavorites(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodPost, "/api/fs/favorites-add", map[string]string{"rootId": "root-1", "path": "docs"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/fs/favorites-add", map[string]string{"rootId": "root-1", "path": "photo.bin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/fs/favorites", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "docs", items[0].(map[string]any)["path"])

	w = f.do(t, http.MethodPost, "/api/fs/favorites-remove", map[string]string{"rootId": "root-1", "path": "docs"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])
}

func TestSynchronousCopyAndMove(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodPost, "/api/fs/copy", map[string]string{
		"fromRootId": "root-1", "fromPath": "docs", "toRootId": "root-2", "toDirPath": "",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 2, out["result"].(map[string]any)["copiedFiles"])
	assert.FileExists(t, filepath.Join(f.b, "docs", "readme.md"))

	w = f.do(t, http.MethodPost, "/api/fs/move", map[string]string{
		"fromRootId": "root-2", "fromPath": "docs", "toRootId": "root-2", "toDirPath": "", "newName": "moved",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.DirExists(t, filepath.Join(f.b, "moved"))
	assert.NoDirExists(t, filepath.Join(f.b, "docs"))

	w = f.do(t, http.MethodPost, "/api/fs/move", map[string]string{
		"fromRootId": "root-1", "fromPath": "docs", "toRootId": "root-2", "toDirPath": "", "newName": "moved",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCopyJobLifecycle(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodPost, "/api/fs/copy-start", map[string]string{
		"fromRootId": "root-1", "fromPath": "docs", "toRootId": "root-2", "toDirPath": "",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id, _ := decode(t, w)["jobId"].(string)
	require.NotEmpty(t, id)

	var job map[string]any
	require.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, "/api/fs/copy-status?jobId="+id, nil)
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
			return false
		}
		return job["status"] != string(jobs.StatusRunning)
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, string(jobs.StatusCompleted), job["status"])
	assert.Equal(t, id, job["jobId"])

	w = f.do(t, http.MethodPost, "/api/fs/copy-cancel", map[string]string{"jobId": id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"jobId":%q,"status":"completed"}`, id), w.Body.String())

	w = f.do(t, http.MethodGet, "/api/fs/copy-jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["jobs"], 1)
}

func TestAuth(t *testing.T) {
	f := newFixture(t, auth.Config{Password: "hunter2"})

	w := f.do(t, http.MethodGet, "/api/fs/roots", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/auth/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"requiresPassword":true,"isAuthenticated":false}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	w = f.do(t, http.MethodGet, "/api/fs/roots", nil, cookies[0])
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/logout", nil, cookies[0])
	require.Equal(t, http.StatusOK, w.Code)
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestAuthDisabled(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"requiresPassword":false,"isAuthenticated":true}`, w.Body.String())
}

func TestStartupStatusDefault(t *testing.T) {
	f := newFixture(t, auth.Config{})

	w := f.do(t, http.MethodGet, "/api/system/startup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Empty(t, out["fatalErrors"])
	assert.NotEmpty(t, out["documentationUrl"])
}
