package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IGRA27/sharepoint-graph/internal/graph"
)

// spanishMonths maps a month number to the uppercase Spanish name used
// in the document library's folder layout.
var spanishMonths = map[int]string{
	1:  "ENERO",
	2:  "FEBRERO",
	3:  "MARZO",
	4:  "ABRIL",
	5:  "MAYO",
	6:  "JUNIO",
	7:  "JULIO",
	8:  "AGOSTO",
	9:  "SEPTIEMBRE",
	10: "OCTUBRE",
	11: "NOVIEMBRE",
	12: "DICIEMBRE",
}

// monthFolderName renders the "<N>. <MES>" folder segment, e.g. "3. MARZO".
func monthFolderName(month int) string {
	return fmt.Sprintf("%d. %s", month, spanishMonths[month])
}

var defaultArriboExtensions = []string{".xlsm", ".xlsx"}

type resolveArriboRequest struct {
	BasePath         string   `json:"base_path"`
	Year             int      `json:"year"`
	Month            int      `json:"month"`
	ArriboContains   string   `json:"arribo_name_contains"`
	ArriboExtensions []string `json:"arribo_extensions"`
}

type resolveArriboResponse struct {
	Folder       string `json:"folder"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	LastModified string `json:"lastModifiedDateTime"`
	Size         int64  `json:"size"`
	ID           string `json:"id"`
	WebURL       string `json:"webUrl"`
}

// handleResolveArribo locates the most recent arrival workbook inside the
// year/month folder convention ("<base>/<year>/<N>. <MES>"). It first looks
// for workbooks whose name contains the arribo marker, and when none match
// falls back to any workbook in the folder.
func (s *Server) handleResolveArribo(w http.ResponseWriter, r *http.Request) {
	var req resolveArriboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: cuerpo JSON inválido: %v", err)
		return
	}

	req.BasePath = strings.Trim(req.BasePath, "/")
	if req.BasePath == "" {
		writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: base_path es requerido")
		return
	}

	loc, err := time.LoadLocation(s.settings.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: %v", err)
		return
	}

	now := time.Now().In(loc)
	if req.Year == 0 {
		req.Year = now.Year()
	}

	if req.Month == 0 {
		req.Month = int(now.Month())
	}

	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: mes inválido: %d", req.Month)
		return
	}

	if req.ArriboContains == "" {
		req.ArriboContains = "ARRIBO"
	}

	if len(req.ArriboExtensions) == 0 {
		req.ArriboExtensions = defaultArriboExtensions
	}

	folder := fmt.Sprintf("%s/%d/%s", req.BasePath, req.Year, monthFolderName(req.Month))

	client, err := s.newClient(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: %v", err)
		return
	}

	items, err := client.FindInFolder(r.Context(), folder, graph.Filter{
		NameContains: req.ArriboContains,
		Extensions:   req.ArriboExtensions,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: %v", err)
		return
	}

	if len(items) == 0 {
		items, err = client.FindInFolder(r.Context(), folder, graph.Filter{
			Extensions: req.ArriboExtensions,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, "Error resolviendo ARRIBO: %v", err)
			return
		}
	}

	best := graph.MostRecent(items)
	if best == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Detail: fmt.Sprintf("No hay Excel en %s", folder),
		})
		return
	}

	writeJSON(w, http.StatusOK, resolveArriboResponse{
		Folder:       folder,
		Name:         best.Name,
		Path:         folder + "/" + best.Name,
		LastModified: best.LastModified,
		Size:         best.Size,
		ID:           best.ID,
		WebURL:       best.WebURL,
	})
}
