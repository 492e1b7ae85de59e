package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/page"
	"github.com/matthewbaird/entityui/internal/source"
	"github.com/matthewbaird/entityui/internal/table"
)

// dataHandler serves entity descriptions and records over REST.
type dataHandler struct {
	pages *page.Factory
	log   logrus.FieldLogger
}

type stepInfo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Fields      []string `json:"fields"`
}

type entityInfo struct {
	Name        string                `json:"name"`
	Label       string                `json:"label"`
	Plural      string                `json:"plural"`
	Columns     []entity.ColumnConfig `json:"columns"`
	BulkActions []entity.ActionConfig `json:"bulk_actions"`
	RowActions  []entity.ActionConfig `json:"row_actions"`
	Fields      []form.Descriptor     `json:"fields"`
	Steps       []stepInfo            `json:"steps,omitempty"`
}

func describe(bp *page.Blueprint) entityInfo {
	cfg := bp.Config
	info := entityInfo{
		Name:        cfg.Name,
		Label:       cfg.Label,
		Plural:      cfg.Plural,
		Columns:     cfg.Table.Columns,
		BulkActions: cfg.Table.BulkActions,
		RowActions:  cfg.Table.RowActions,
		Fields:      bp.Describe(),
	}
	for _, s := range bp.Steps {
		info.Steps = append(info.Steps, stepInfo{ID: s.ID, Title: s.Title, Description: s.Description, Fields: s.Fields})
	}
	return info
}

func (h *dataHandler) listEntities(w http.ResponseWriter, r *http.Request) {
	out := []entityInfo{}
	for _, name := range h.pages.Names() {
		bp, err := h.pages.Blueprint(name)
		if err != nil {
			continue
		}
		out = append(out, describe(bp))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *dataHandler) getEntity(w http.ResponseWriter, r *http.Request) {
	bp, err := h.pages.Blueprint(chi.URLParam(r, "entity"))
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(bp))
}

func (h *dataHandler) resolve(w http.ResponseWriter, r *http.Request) (*page.Blueprint, source.Source, bool) {
	name := chi.URLParam(r, "entity")
	bp, err := h.pages.Blueprint(name)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return nil, nil, false
	}
	src, ok := h.pages.Sources.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "NO_SOURCE", "no data source for "+name)
		return nil, nil, false
	}
	return bp, src, true
}

// list returns one page of records. Sources that return a complete dataset
// are filtered, sorted and paged here so the response is always one page.
func (h *dataHandler) list(w http.ResponseWriter, r *http.Request) {
	_, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()
	res, err := src.GetAll(r.Context(), params)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	if !res.Paged {
		rows, total := table.Apply(res.Content, table.ParseQuery(params))
		res = source.Result{Content: rows, TotalElements: total, Paged: true}
	}
	if res.Content == nil {
		res.Content = []entity.Record{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *dataHandler) get(w http.ResponseWriter, r *http.Request) {
	_, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	rec, err := src.GetByID(r.Context(), entity.RowID(chi.URLParam(r, "id")))
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *dataHandler) create(w http.ResponseWriter, r *http.Request) {
	bp, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if err := bp.Validate(form.Values(body)); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	rec, err := src.Create(r.Context(), body)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	h.invalidate(r, src)
	writeJSON(w, http.StatusCreated, rec)
}

// update merges the body into the stored record and validates the result
// before writing.
func (h *dataHandler) update(w http.ResponseWriter, r *http.Request) {
	bp, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id := entity.RowID(chi.URLParam(r, "id"))
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	current, err := src.GetByID(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	merged := form.Values(current.Clone())
	for k, v := range body {
		merged[k] = v
	}
	if err := bp.Validate(merged); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	rec, err := src.Update(r.Context(), id, body)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	h.invalidate(r, src)
	writeJSON(w, http.StatusOK, rec)
}

func (h *dataHandler) invalidate(r *http.Request, src source.Source) {
	if err := src.InvalidateQueries(r.Context()); err != nil {
		h.log.WithError(err).Warn("invalidating queries")
	}
}
