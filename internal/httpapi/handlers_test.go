package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IGRA27/sharepoint-graph/internal/config"
	"github.com/IGRA27/sharepoint-graph/internal/graph"
)

// fakeDrive implements DriveClient with overridable behavior per test.
type fakeDrive struct {
	resolveFn func(ctx context.Context, ref graph.Ref) (*graph.Download, error)
	streamFn  func(ctx context.Context, downloadURL string, w io.Writer) (int64, error)
	uploadFn  func(ctx context.Context, targetPath, filename string, data []byte) (*graph.Item, error)
	findFn    func(ctx context.Context, folderPath string, filter graph.Filter) ([]graph.Item, error)
}

func (f *fakeDrive) ResolveDownload(ctx context.Context, ref graph.Ref) (*graph.Download, error) {
	return f.resolveFn(ctx, ref)
}

func (f *fakeDrive) Stream(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	return f.streamFn(ctx, downloadURL, w)
}

func (f *fakeDrive) Upload(ctx context.Context, targetPath, filename string, data []byte) (*graph.Item, error) {
	return f.uploadFn(ctx, targetPath, filename, data)
}

func (f *fakeDrive) FindInFolder(ctx context.Context, folderPath string, filter graph.Filter) ([]graph.Item, error) {
	return f.findFn(ctx, folderPath, filter)
}

func newTestServer(t *testing.T, drive DriveClient) *Server {
	t.Helper()

	return &Server{
		settings: config.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:  NewMetrics(),
		newClient: func(_ context.Context) (DriveClient, error) {
			return drive, nil
		},
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "sharepoint-io", body["service"])
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sharepoint/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestConfigCheck_NoSecrets(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})
	srv.settings.TenantID = "tenant"
	srv.settings.ClientID = "client"

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sharepoint/config-check", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[configCheckResponse](t, rec)
	assert.Equal(t, "atiscodesa.sharepoint.com", body.SiteHostname)
	assert.Equal(t, "/sites/Loyalty2021", body.SitePath)
	assert.Equal(t, "America/Guayaquil", body.Timezone)
	assert.True(t, body.HasAADTenantID)
	assert.True(t, body.HasAADClientID)
	assert.False(t, body.HasAADClientSecret)

	// Secret values must never appear anywhere in the response.
	assert.NotContains(t, rec.Body.String(), "tenant")
}

func TestDownload_StreamsAttachment(t *testing.T) {
	const payload = "spreadsheet bytes"

	drive := &fakeDrive{
		resolveFn: func(_ context.Context, ref graph.Ref) (*graph.Download, error) {
			assert.Equal(t, "Reportes/informe.xlsx", ref.Path)
			return &graph.Download{URL: "https://cdn.example/f", Name: "informe.xlsx"}, nil
		},
		streamFn: func(_ context.Context, downloadURL string, w io.Writer) (int64, error) {
			assert.Equal(t, "https://cdn.example/f", downloadURL)
			n, err := io.WriteString(w, payload)
			return int64(n), err
		},
	}
	srv := newTestServer(t, drive)

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/download",
		strings.NewReader(`{"path": "Reportes/informe.xlsx"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="informe.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.String())
}

func TestDownload_ResolveFailure(t *testing.T) {
	drive := &fakeDrive{
		resolveFn: func(_ context.Context, _ graph.Ref) (*graph.Download, error) {
			return nil, graph.ErrNotFound
		},
	}
	srv := newTestServer(t, drive)

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/download",
		strings.NewReader(`{"path": "no/such.xlsx"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Detail, "Error al descargar")
}

func TestDownload_StreamFailsBeforeFirstByte(t *testing.T) {
	drive := &fakeDrive{
		resolveFn: func(_ context.Context, _ graph.Ref) (*graph.Download, error) {
			return &graph.Download{URL: "https://cdn.example/gone", Name: "informe.xlsx"}, nil
		},
		streamFn: func(_ context.Context, _ string, _ io.Writer) (int64, error) {
			return 0, &graph.RemoteError{StatusCode: http.StatusNotFound, Err: graph.ErrNotFound}
		},
	}
	srv := newTestServer(t, drive)

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/download",
		strings.NewReader(`{"path": "Reportes/informe.xlsx"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Detail, "Error al descargar")
	assert.Contains(t, body.Detail, "404")
}

func TestDownload_StreamFailsMidTransfer(t *testing.T) {
	drive := &fakeDrive{
		resolveFn: func(_ context.Context, _ graph.Ref) (*graph.Download, error) {
			return &graph.Download{URL: "https://cdn.example/f", Name: "informe.xlsx"}, nil
		},
		streamFn: func(_ context.Context, _ string, w io.Writer) (int64, error) {
			n, _ := io.WriteString(w, "partial")
			return int64(n), errors.New("connection reset")
		},
	}
	srv := newTestServer(t, drive)

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/download",
		strings.NewReader(`{"path": "Reportes/informe.xlsx"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// Once bytes are on the wire the status is committed; the truncated
	// body is the only possible signal to the caller.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestDownload_InvalidBody(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/download", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Detail, "Error al descargar")
}

func TestDownload_ClientFactoryFailure(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})
	srv.newClient = func(_ context.Context) (DriveClient, error) {
		return nil, &graph.ConfigError{Missing: []string{config.EnvTenantID}}
	}

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/download",
		strings.NewReader(`{"path": "a.bin"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Detail, config.EnvTenantID)
}

func multipartBody(t *testing.T, fieldFilename, content string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", fieldFilename)
	require.NoError(t, err)

	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestUpload_Success(t *testing.T) {
	var gotTarget, gotFilename string
	var gotData []byte

	drive := &fakeDrive{
		uploadFn: func(_ context.Context, targetPath, filename string, data []byte) (*graph.Item, error) {
			gotTarget, gotFilename, gotData = targetPath, filename, data
			return &graph.Item{
				ID:     "item-9",
				Name:   filename,
				WebURL: "https://sp.example/item-9",
				Size:   int64(len(data)),
			}, nil
		},
	}
	srv := newTestServer(t, drive)

	body, contentType := multipartBody(t, "original.bin", "hello upload")
	req := httptest.NewRequest(http.MethodPost,
		"/sharepoint/upload?target_path=Resultados&filename=renamed.bin", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Resultados", gotTarget)
	assert.Equal(t, "renamed.bin", gotFilename)
	assert.Equal(t, []byte("hello upload"), gotData)

	resp := decodeBody[uploadResponse](t, rec)
	assert.Equal(t, "item-9", resp.ID)
	assert.Equal(t, "renamed.bin", resp.Name)
	assert.Equal(t, "https://sp.example/item-9", resp.WebURL)
	assert.Equal(t, int64(len("hello upload")), resp.Size)
}

func TestUpload_FilenameFromMultipart(t *testing.T) {
	var gotFilename string

	drive := &fakeDrive{
		uploadFn: func(_ context.Context, _, filename string, data []byte) (*graph.Item, error) {
			gotFilename = filename
			return &graph.Item{ID: "i", Name: filename, Size: int64(len(data))}, nil
		},
	}
	srv := newTestServer(t, drive)

	body, contentType := multipartBody(t, "from-form.xlsx", "x")
	req := httptest.NewRequest(http.MethodPost, "/sharepoint/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-form.xlsx", gotFilename)
}

func TestUpload_MissingFile(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sharepoint/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Detail, "Error al subir")
}

func TestUpload_GraphFailure(t *testing.T) {
	drive := &fakeDrive{
		uploadFn: func(_ context.Context, _, _ string, _ []byte) (*graph.Item, error) {
			return nil, errors.New("boom")
		},
	}
	srv := newTestServer(t, drive)

	body, contentType := multipartBody(t, "a.bin", "x")
	req := httptest.NewRequest(http.MethodPost, "/sharepoint/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body2 := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body2.Detail, "Error al subir: boom")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeDrive{})

	// Generate one request so the counter vec has a series.
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sharepoint/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sharepoint_gateway_requests_total")
}
