package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elicitlabs/elicit/pkg/cache"
	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/errors"
	"github.com/elicitlabs/elicit/pkg/export"
	"github.com/elicitlabs/elicit/pkg/pathway"
	"github.com/elicitlabs/elicit/pkg/render"
	"github.com/elicitlabs/elicit/pkg/rule"
)

// maxBodySize caps request bodies; pathway snapshots are small.
const maxBodySize = 10 << 20

// Handler holds the API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps structured error codes to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeRuleNotFound, errors.ErrCodeNotFound, errors.ErrCodePathwayNotFound, errors.ErrCodeNodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidNodeType, errors.ErrCodeInvalidPathway,
		errors.ErrCodeInvalidRule, errors.ErrCodeInvalidFormat:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.svc.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody(errors.UserMessage(err)))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

// ==============================================================================
// Rule endpoints
// ==============================================================================

// ListRules handles GET /rules with optional search filters.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := collection.SearchOptions{
		Query:         q.Get("q"),
		CaseSensitive: q.Get("case_sensitive") == "true",
		Kind:          rule.Kind(q.Get("kind")),
		Fields:        collection.SearchFields(q.Get("fields")),
		Usage:         collection.UsageFilter(q.Get("usage")),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.DateFrom = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.DateTo = &t
		}
	}

	rules := h.svc.Rules(opts)
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"total": len(rules),
	})
}

type createRuleRequest struct {
	Text        string              `json:"text"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Conditions  []pathway.Condition `json:"conditions"`
	Actions     []pathway.Action    `json:"actions"`
	Pathway     *pathway.Snapshot   `json:"pathway_data"`
}

// CreateRule handles POST /rules. The body carries either free rule text,
// structured clauses, or a pathway snapshot to convert.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var created *rule.Rule
	if req.Pathway != nil {
		p, err := pathway.FromSnapshot(*req.Pathway)
		if err != nil {
			h.writeError(w, errors.Wrap(errors.ErrCodeInvalidPathway, err, "invalid pathway snapshot"))
			return
		}
		created = rule.FromPathway(p)
	} else {
		created = rule.New(req.Text)
		if len(req.Conditions) > 0 {
			created.SetConditions(req.Conditions)
			created.SetActions(req.Actions)
		} else if req.Text != "" {
			created.ParseText()
		}
	}
	created.Name = req.Name
	created.Description = req.Description

	if created.Text == "" && len(created.Conditions) == 0 {
		h.writeError(w, errors.New(errors.ErrCodeInvalidRule, "rule has no text, clauses, or pathway"))
		return
	}

	if err := h.svc.Create(r.Context(), created); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rl, err := h.svc.Rule(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rl)
}

// UpdateRule handles PUT /rules/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var rl rule.Rule
	if !decodeBody(w, r, &rl) {
		return
	}
	rl.ID = chi.URLParam(r, "id")
	if err := h.svc.Update(r.Context(), &rl); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &rl)
}

// DeleteRule handles DELETE /rules/{id}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UseRule handles POST /rules/{id}/use.
func (h *Handler) UseRule(w http.ResponseWriter, r *http.Request) {
	rl, err := h.svc.Use(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rl)
}

// DuplicateRule handles POST /rules/{id}/duplicate.
func (h *Handler) DuplicateRule(w http.ResponseWriter, r *http.Request) {
	rl, err := h.svc.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rl)
}

// ValidateRule handles GET /rules/{id}/validate.
func (h *Handler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	rl, err := h.svc.Rule(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rl.Validate())
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// ValidateAll handles GET /validate.
func (h *Handler) ValidateAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ValidateAll())
}

// ==============================================================================
// Export / import
// ==============================================================================

// Export handles GET /export?format=json|csv|text|zip&template=...
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := export.Format(q.Get("format"))
	if format == "" {
		format = export.FormatJSON
	}

	rules := h.svc.Rules(collection.SearchOptions{})
	req := export.Request{
		Rules:    rules,
		Format:   format,
		Template: export.Template(q.Get("template")),
	}

	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case export.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	case export.FormatZip:
		w.Header().Set("Content-Type", "application/zip")
	}

	if err := export.Write(w, req); err != nil {
		h.writeError(w, err)
	}
}

// Import handles POST /import with a collection export payload.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var payload collection.ExportPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	added, updated, err := h.svc.Import(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"added":   added,
		"updated": updated,
	})
}

// ==============================================================================
// Pathway endpoints
// ==============================================================================

func decodePathway(w http.ResponseWriter, r *http.Request) (*pathway.Pathway, bool) {
	var snap pathway.Snapshot
	if !decodeBody(w, r, &snap) {
		return nil, false
	}
	p, err := pathway.FromSnapshot(snap)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.UserMessage(err)))
		return nil, false
	}
	return p, true
}

// ConvertPathway handles POST /pathways/convert, turning a snapshot into
// rule text and structured clauses.
func (h *Handler) ConvertPathway(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePathway(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":       p.RuleText(),
		"structured": p.StructuredRule(),
	})
}

// ValidatePathway handles POST /pathways/validate, returning the validation
// report plus any cycles.
func (h *Handler) ValidatePathway(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePathway(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report": p.Validate(),
		"cycles": p.DetectCycles(),
	})
}

// LayoutPathway handles POST /pathways/layout, repositioning every node
// into its type column and returning the updated snapshot.
func (h *Handler) LayoutPathway(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePathway(w, r)
	if !ok {
		return
	}
	p.AutoLayout()
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// RenderPathway handles POST /pathways/render?format=dot|svg&detailed=true.
// SVG artifacts are cached keyed by the snapshot content.
func (h *Handler) RenderPathway(w http.ResponseWriter, r *http.Request) {
	var snap pathway.Snapshot
	if !decodeBody(w, r, &snap) {
		return
	}
	p, err := pathway.FromSnapshot(snap)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.UserMessage(err)))
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "svg"
	}
	detailed, _ := strconv.ParseBool(q.Get("detailed"))

	opts := render.Options{Detailed: detailed}
	dot := render.ToDOT(p, opts)

	if format == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		_, _ = w.Write([]byte(dot))
		return
	}
	if format != "svg" {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported render format: "+format))
		return
	}

	keyFormat := "svg"
	if detailed {
		keyFormat = "svg-detailed"
	}
	snapData, _ := json.Marshal(snap)
	key := h.svc.keyer.RenderKey(cache.Hash(snapData), cache.RenderKeyOpts{Format: keyFormat})

	if data, ok, err := h.svc.cache.Get(r.Context(), key); err == nil && ok {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("X-Cache", "hit")
		_, _ = w.Write(data)
		return
	}

	svg, err := render.SVG(dot)
	if err != nil {
		h.writeError(w, errors.Wrap(errors.ErrCodeRender, err, "render SVG"))
		return
	}
	if err := h.svc.cache.Set(r.Context(), key, svg, renderTTL); err != nil {
		h.svc.logger.Warn("cache render artifact", "error", err)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
