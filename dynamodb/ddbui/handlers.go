package ddbui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

const (
	defaultLimit = 25
	maxLimit     = 1000
)

// Store is the engine surface the API serves.
type Store interface {
	ddbstore.Table
	Size(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

var _ Store = (*ddbstore.Store)(nil)

// APIHandler provides REST API endpoints over a single table.
type APIHandler struct {
	store Store
	log   *zap.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(store Store, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{store: store, log: logger}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/table", h.getTable)
	mux.HandleFunc("GET /api/items", h.scanItems)
	mux.HandleFunc("POST /api/items", h.putItem)
	mux.HandleFunc("DELETE /api/items", h.clearItems)
	mux.HandleFunc("GET /api/items/{pk}/{sk}", h.getItem)
	mux.HandleFunc("DELETE /api/items/{pk}/{sk}", h.deleteItem)
	mux.HandleFunc("POST /api/query", h.queryItems)
	mux.HandleFunc("POST /api/gsi/{gsi}/query", h.queryGSI)
}

// getTable returns the table layout and its record count.
func (h *APIHandler) getTable(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Size(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "size", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table": SchemaOf(h.store.Definition()),
		"size":  n,
	})
}

// scanItems returns all records in key order with pagination.
func (h *APIHandler) scanItems(w http.ResponseWriter, r *http.Request) {
	page := ddbstore.PageOptions{
		Limit:  clampLimit(parseIntParam(r, "limit", defaultLimit)),
		Cursor: r.URL.Query().Get("cursor"),
	}
	res, err := h.store.Scan(r.Context(), page)
	if err != nil {
		h.writeStoreError(w, r, "scan", err)
		return
	}
	h.writePage(w, r, res)
}

func (h *APIHandler) getItem(w http.ResponseWriter, r *http.Request) {
	pk, sk := r.PathValue("pk"), r.PathValue("sk")
	rec, err := h.store.Get(r.Context(), pk, sk)
	if err != nil {
		h.writeStoreError(w, r, "get item", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	rj, err := toRecordJSON(*rec)
	if err != nil {
		h.writeStoreError(w, r, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": rj})
}

// deleteItem removes a record. With ?requireExists=true a missing record is a 404.
func (h *APIHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	pk, sk := r.PathValue("pk"), r.PathValue("sk")
	var opts []ddbstore.DeleteOption
	if parseBoolParam(r, "requireExists") {
		opts = append(opts, ddbstore.RequireExists())
	}
	old, err := h.store.Delete(r.Context(), pk, sk, opts...)
	if err != nil {
		h.writeStoreError(w, r, "delete item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": old != nil})
}

// clearItems drops every record.
func (h *APIHandler) clearItems(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.writeStoreError(w, r, "clear", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// PutItemRequest is the JSON request body for putting an item.
type PutItemRequest struct {
	Item RecordJSON `json:"item"`
	// RequireAbsent makes the put fail with 409 if the identity is taken.
	RequireAbsent bool `json:"requireAbsent,omitempty"`
}

// putItem creates or replaces a record.
func (h *APIHandler) putItem(w http.ResponseWriter, r *http.Request) {
	var req PutItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rec, err := req.Item.Record()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item: "+err.Error())
		return
	}
	var opts []ddbstore.PutOption
	if req.RequireAbsent {
		opts = append(opts, ddbstore.RequireAbsent())
	}
	if err := h.store.Put(r.Context(), rec, opts...); err != nil {
		h.writeStoreError(w, r, "put item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// SortConditionJSON is the wire form of ddbstore.SortCondition. Value is a
// string, or a two element array for between.
type SortConditionJSON struct {
	Op    string `json:"op"`
	Value any    `json:"value"`
}

func (c *SortConditionJSON) condition() (*ddbstore.SortCondition, error) {
	if c == nil {
		return nil, nil
	}
	op, err := ddbstore.ParseOperator(c.Op)
	if err != nil {
		return nil, err
	}
	return &ddbstore.SortCondition{Op: op, Value: c.Value}, nil
}

// QueryRequest is the JSON request body for querying a partition of the
// table or of an index.
type QueryRequest struct {
	PartitionKey  string             `json:"partitionKey"`
	SortCondition *SortConditionJSON `json:"sortCondition,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	Cursor        string             `json:"cursor,omitempty"`
}

// queryItems queries one partition of the table.
func (h *APIHandler) queryItems(w http.ResponseWriter, r *http.Request) {
	req, cond, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	res, err := h.store.Query(r.Context(), ddbstore.KeyQuery{
		PartitionKey:  req.PartitionKey,
		SortCondition: cond,
	}, ddbstore.PageOptions{Limit: clampLimit(req.Limit), Cursor: req.Cursor})
	if err != nil {
		h.writeStoreError(w, r, "query", err)
		return
	}
	h.writePage(w, r, res)
}

// queryGSI queries one partition of a Global Secondary Index.
func (h *APIHandler) queryGSI(w http.ResponseWriter, r *http.Request) {
	gsi, ok := h.store.Definition().GSI(r.PathValue("gsi"))
	if !ok {
		writeError(w, http.StatusNotFound, "index not found: "+r.PathValue("gsi"))
		return
	}
	req, cond, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	if cond != nil {
		cond = cond.On(gsi.SortKey)
	}
	res, err := h.store.QueryByAttribute(r.Context(), ddbstore.AttributeQuery{
		AttributeName:  gsi.PartitionKey,
		AttributeValue: req.PartitionKey,
		SortCondition:  cond,
	}, ddbstore.PageOptions{Limit: clampLimit(req.Limit), Cursor: req.Cursor})
	if err != nil {
		h.writeStoreError(w, r, "query index", err)
		return
	}
	h.writePage(w, r, res)
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (QueryRequest, *ddbstore.SortCondition, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, nil, false
	}
	if req.PartitionKey == "" {
		writeError(w, http.StatusBadRequest, "partitionKey is required")
		return req, nil, false
	}
	cond, err := req.SortCondition.condition()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, nil, false
	}
	return req, cond, true
}

func (h *APIHandler) writePage(w http.ResponseWriter, r *http.Request, page *ddbstore.Page) {
	items := make([]RecordJSON, 0, len(page.Records))
	for _, rec := range page.Records {
		rj, err := toRecordJSON(rec)
		if err != nil {
			h.writeStoreError(w, r, "encode page", err)
			return
		}
		items = append(items, rj)
	}
	resp := map[string]any{
		"items": items,
		"count": page.Count,
	}
	if !page.Done() {
		resp["cursor"] = page.NextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ddbstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ddbstore.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ddbstore.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op+" failed", zap.String("requestId", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed: "+err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func parseIntParam[T constraints.Integer](r *http.Request, name string, defaultVal T) T {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || T(v) < 0 || int64(T(v)) != v {
		return defaultVal
	}
	return T(v)
}

func parseBoolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}
