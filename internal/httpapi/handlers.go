package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/IGRA27/sharepoint-graph/internal/graph"
)

// maxUploadMemory caps how much of a multipart upload stays in memory
// before net/http spills to temp files.
const maxUploadMemory = 32 << 20

// errorResponse mirrors the gateway's historical error shape.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Detail: fmt.Sprintf(format, args...)})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "sharepoint-io",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// configCheckResponse exposes non-secret settings plus presence booleans
// for each credential. Secrets themselves never leave the process.
type configCheckResponse struct {
	SiteHostname       string `json:"SITE_HOSTNAME"`
	SitePath           string `json:"SITE_PATH"`
	Timezone           string `json:"TIMEZONE"`
	HasAADTenantID     bool   `json:"HAS_AAD_TENANT_ID"`
	HasAADClientID     bool   `json:"HAS_AAD_CLIENT_ID"`
	HasAADClientSecret bool   `json:"HAS_AAD_CLIENT_SECRET"`
}

func (s *Server) handleConfigCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configCheckResponse{
		SiteHostname:       s.settings.SiteHostname,
		SitePath:           s.settings.SitePath,
		Timezone:           s.settings.Timezone,
		HasAADTenantID:     s.settings.TenantID != "",
		HasAADClientID:     s.settings.ClientID != "",
		HasAADClientSecret: s.settings.ClientSecret != "",
	})
}

type downloadRequest struct {
	Path   string `json:"path"`
	ItemID string `json:"item_id"`
}

// handleDownload streams a file addressed by path or item id. Failures
// before the first byte map to 400 with a descriptive detail; once
// streaming has begun the response cannot be rewound, so a mid-stream
// failure only terminates the body and is logged.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Error al descargar: cuerpo JSON inválido: %v", err)
		return
	}

	client, err := s.newClient(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error al descargar: %v", err)
		return
	}

	dl, err := client.ResolveDownload(r.Context(), graph.Ref{Path: req.Path, ItemID: req.ItemID})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error al descargar: %v", err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Name))
	w.Header().Set("Content-Type", "application/octet-stream")

	n, err := client.Stream(r.Context(), dl.URL, w)

	s.metrics.AddDownloadedBytes(n)

	if err != nil {
		// Nothing written yet means the headers have not been sent, so the
		// failure can still become a proper 400 instead of an empty 200.
		if n == 0 {
			w.Header().Del("Content-Disposition")
			w.Header().Del("Content-Type")
			writeError(w, http.StatusBadRequest, "Error al descargar: %v", err)
			return
		}

		s.logger.Error("download stream aborted",
			slog.String("name", dl.Name),
			slog.Int64("bytes_sent", n),
			slog.String("error", err.Error()),
		)
	}
}

// uploadResponse is the subset of item metadata returned to upload callers.
type uploadResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
}

// handleUpload accepts a multipart file plus target_path / filename query
// parameters and writes it to the document library.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Error al subir: formulario multipart inválido: %v", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error al subir: falta el archivo: %v", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error al subir: %v", err)
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = header.Filename
	}

	if filename == "" {
		filename = "upload.bin"
	}

	targetPath := r.URL.Query().Get("target_path")

	client, err := s.newClient(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error al subir: %v", err)
		return
	}

	item, err := client.Upload(r.Context(), targetPath, filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error al subir: %v", err)
		return
	}

	s.metrics.AddUploadedBytes(int64(len(data)))

	writeJSON(w, http.StatusOK, uploadResponse{
		ID:     item.ID,
		Name:   item.Name,
		WebURL: item.WebURL,
		Size:   item.Size,
	})
}
