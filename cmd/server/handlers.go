package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logistics "github.com/hansjooseptammerik/logistics-automation-mvp"
	"github.com/hansjooseptammerik/logistics-automation-mvp/order"
	"github.com/hansjooseptammerik/logistics-automation-mvp/parser"
)

// maxFormMemory is the multipart memory budget; larger parts spill to disk.
const maxFormMemory = 32 << 20

type handler struct {
	engine    logistics.Engine
	metrics   *metrics
	maxUpload int64
}

func newHandler(e logistics.Engine, m *metrics, maxUpload int64) *handler {
	if maxUpload <= 0 {
		maxUpload = logistics.DefaultConfig().MaxUploadBytes
	}
	return &handler{engine: e, metrics: m, maxUpload: maxUpload}
}

// routes registers every endpoint on a new mux.
func (h *handler) routes(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /parse", h.handleParse)
	mux.HandleFunc("POST /orders", h.handleIngest)
	mux.HandleFunc("GET /orders", h.handleListOrders)
	mux.HandleFunc("GET /orders/{id}", h.handleGetOrder)
	mux.HandleFunc("PATCH /orders/{id}", h.handleUpdateOrder)
	mux.HandleFunc("POST /orders/{id}/reparse", h.handleReparse)
	mux.HandleFunc("DELETE /orders/{id}", h.handleDeleteOrder)
	mux.HandleFunc("GET /export.xlsx", h.handleExport("xlsx"))
	mux.HandleFunc("GET /export.csv", h.handleExport("csv"))
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// POST /parse
// Accepts a multipart document upload, JSON {"lines": [...]} or
// {"text": "..."}, or a text/plain body. Nothing is stored.
func (h *handler) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	start := time.Now()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		out, err := h.parseUpload(ctx, w, r)
		if err != nil {
			h.metrics.observeParse("upload", start, 0, err)
			writeEngineError(w, err)
			return
		}
		h.metrics.observeParse("upload", start, len(out.Record.Items), nil)
		writeJSON(w, http.StatusOK, out)

	case "application/json":
		var req struct {
			Lines []string `json:"lines"`
			Text  string   `json:"text"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUpload)).Decode(&req); err != nil {
			h.metrics.observeParse("json", start, 0, err)
			writeEngineError(w, uploadError(err, "invalid JSON"))
			return
		}
		rec := order.Parse(req.Lines)
		if req.Lines == nil {
			rec = order.ParseText(req.Text)
		}
		h.metrics.observeParse("json", start, len(rec.Items), nil)
		writeJSON(w, http.StatusOK, rec)

	case "text/plain", "":
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
		if err != nil {
			h.metrics.observeParse("text", start, 0, err)
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		rec := order.ParseText(string(body))
		h.metrics.observeParse("text", start, len(rec.Items), nil)
		writeJSON(w, http.StatusOK, rec)

	default:
		writeError(w, http.StatusUnsupportedMediaType, "unsupported content type: "+mediaType)
	}
}

// parseUpload spools the uploaded file to a temp file so the parser can
// open it by path.
func (h *handler) parseUpload(ctx context.Context, w http.ResponseWriter, r *http.Request) (*logistics.ParseOutput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, uploadError(err, "missing file field")
	}
	defer file.Close()

	// The extension selects the parser.
	format := parser.FormatOf(header.Filename)
	tmp, err := os.CreateTemp("", "note-*."+format)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	return h.engine.ParseFile(ctx, tmp.Name())
}

// uploadError keeps a body-size overrun intact for errorStatus and turns
// anything else into a bad request.
func uploadError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: upload exceeds %d bytes", logistics.ErrTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

// POST /orders
// Multipart upload with a "file" field; "force=true" stores duplicates.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeEngineError(w, uploadError(err, "expected multipart upload with a 'file' field"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	var opts []logistics.IngestOption
	if force, _ := strconv.ParseBool(r.FormValue("force")); force {
		opts = append(opts, logistics.WithForce())
	}

	res, err := h.engine.IngestReader(ctx, filepath.Base(header.Filename), file, opts...)
	if err != nil {
		h.metrics.observeIngest("error")
		slog.Error("ingest error", "file", header.Filename, "error", err)
		writeEngineError(w, err)
		return
	}

	status := http.StatusCreated
	switch {
	case res.Duplicate:
		h.metrics.observeIngest("duplicate")
		status = http.StatusOK
	case res.ParseError != "":
		h.metrics.observeIngest("parse_error")
	default:
		h.metrics.observeIngest("stored")
	}
	writeJSON(w, status, res)
}

// GET /orders?status=&q=&limit=
func (h *handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		orders []logistics.Order
		err    error
	)
	if query := strings.TrimSpace(q.Get("q")); query != "" {
		limit, _ := strconv.Atoi(q.Get("limit"))
		orders, err = h.engine.Search(r.Context(), query, limit)
	} else {
		orders, err = h.engine.List(r.Context(), q.Get("status"))
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if orders == nil {
		orders = []logistics.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GET /orders/{id}
func (h *handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// PATCH /orders/{id}
// Body is a JSON object of field name to new value.
func (h *handler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: expected an object of string fields")
		return
	}
	o, err := h.engine.Update(r.Context(), id, fields)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// POST /orders/{id}/reparse
func (h *handler) handleReparse(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	o, err := h.engine.Reparse(r.Context(), id)
	if err != nil {
		h.metrics.observeParse("reparse", start, 0, err)
		writeEngineError(w, err)
		return
	}
	h.metrics.observeParse("reparse", start, len(o.Items), nil)
	writeJSON(w, http.StatusOK, o)
}

// DELETE /orders/{id}
func (h *handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /export.xlsx, GET /export.csv
func (h *handler) handleExport(format string) http.HandlerFunc {
	contentType := map[string]string{
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"csv":  "text/csv; charset=utf-8",
	}[format]

	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := h.engine.Export(r.Context(), &buf, format, r.URL.Query().Get("status")); err != nil {
			writeEngineError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="orders.%s"`, format))
		buf.WriteTo(w)
	}
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

var errBadRequest = errors.New("bad request")

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

// errorStatus maps engine errors to HTTP status codes.
func errorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, logistics.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, logistics.ErrInvalidField),
		errors.Is(err, logistics.ErrInvalidStatus),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, logistics.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, logistics.ErrTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, logistics.ErrParsingFailed), errors.Is(err, logistics.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, logistics.ErrStoreClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
