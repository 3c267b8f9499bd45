package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FoxxDev-Collab/controlgraph/internal/application"
	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"github.com/FoxxDev-Collab/controlgraph/internal/oscal"
	"github.com/go-chi/chi/v5"
)

// maxImportBody bounds the ingest endpoint; large catalogs run a few
// tens of megabytes at most.
const maxImportBody = 64 << 20

type Handler struct {
	service *application.CatalogService
	log     *slog.Logger
}

func NewRouter(service *application.CatalogService, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{service: service, log: log}
	r := chi.NewRouter()

	r.Route("/api", func(api chi.Router) {
		api.Post("/catalogs/import", h.handleImport)
		api.Get("/catalogs", h.handleListCatalogs)
		api.Get("/catalogs/{catalogID}", h.handleGetCatalog)
		api.Get("/groups/{groupID}", h.handleGetGroup)
		api.Get("/controls/{controlID}", h.handleGetControl)
		api.Get("/controls/{controlID}/related", h.handleRelatedControls)
	})

	return r
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}

	started := time.Now()
	result, err := h.service.Ingest(r.Context(), data, r.URL.Query().Get("type"))
	if err != nil {
		var schemaErr *oscal.SchemaError
		if errors.As(err, &schemaErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "schema violation",
				"path":   schemaErr.Path,
				"detail": schemaErr.Reason,
			})
			return
		}
		h.log.Error("import failed", "error", err, "duration", time.Since(started))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCatalogs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	payload := make([]catalogSummaryJSON, 0, len(items))
	for _, item := range items {
		payload = append(payload, toCatalogSummaryJSON(item))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID := chi.URLParam(r, "catalogID")
	params, paginated, err := readPageParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if !paginated {
		summary, err := h.service.GetCatalog(r.Context(), catalogID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCatalogSummaryJSON(summary))
		return
	}

	page, err := h.service.GetCatalogPage(r.Context(), catalogID, params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalogPageJSON(page))
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	params, _, err := readPageParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	page, err := h.service.GetGroupPage(r.Context(), strings.TrimSpace(r.URL.Query().Get("catalog")), groupID, params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupPageJSON(page))
}

func (h *Handler) handleGetControl(w http.ResponseWriter, r *http.Request) {
	controlID := chi.URLParam(r, "controlID")
	detail, err := h.service.GetControlDetail(r.Context(), controlID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toControlDetailJSON(detail))
}

func (h *Handler) handleRelatedControls(w http.ResponseWriter, r *http.Request) {
	controlID := chi.URLParam(r, "controlID")
	items, err := h.service.RelatedControls(r.Context(), controlID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]controlSummaryJSON, 0, len(items))
	for _, item := range items {
		payload = append(payload, toControlSummaryJSON(item))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

// readPageParams parses optional page/limit query strings. The second
// return value reports whether the caller asked for pagination at all;
// clamping itself happens in the service.
func readPageParams(r *http.Request) (application.PageParams, bool, error) {
	q := r.URL.Query()
	rawPage := strings.TrimSpace(q.Get("page"))
	rawLimit := strings.TrimSpace(q.Get("limit"))
	if rawPage == "" && rawLimit == "" {
		return application.PageParams{}, false, nil
	}

	var params application.PageParams
	if rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil {
			return application.PageParams{}, false, errors.New("page must be an integer")
		}
		params.Page = page
	}
	if rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil {
			return application.PageParams{}, false, errors.New("limit must be an integer")
		}
		params.Limit = limit
	}
	return params, true, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
