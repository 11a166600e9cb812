package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"energy-dashboard/internal/auth"
	"energy-dashboard/internal/ingest/application"
	ingest "energy-dashboard/internal/ingest/domain"
	"energy-dashboard/internal/ingest/parser"
	"energy-dashboard/internal/store"
)

// DefaultMaxFileBytes bounds one uploaded file.
const DefaultMaxFileBytes = 10 << 20

const maxFilesPerRequest = 10

var (
	// ErrFileTooLarge is returned for files over the size limit.
	ErrFileTooLarge = errors.New("import: file too large")
	// ErrNoFiles is returned when a request carries no file part.
	ErrNoFiles = errors.New("import: no files")
)

// Importer is the import pipeline used by the handler.
type Importer interface {
	Import(ctx context.Context, req application.Request) (application.Summary, error)
	Preview(req application.Request) (application.Preview, error)
	History(ctx context.Context, limit int) ([]ingest.ImportJob, error)
}

// Handler serves /api/v1/imports.
type Handler struct {
	importer Importer
	maxBytes int64
}

// NewHandler constructs an import handler. maxBytes <= 0 uses the default.
func NewHandler(importer Importer, maxBytes int64) (*Handler, error) {
	if importer == nil {
		return nil, errors.New("import handler: nil importer")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Handler{importer: importer, maxBytes: maxBytes}, nil
}

type errorBody struct {
	Error          string   `json:"error"`
	Reason         string   `json:"reason"`
	File           string   `json:"file,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Retryable      bool     `json:"retryable,omitempty"`
}

// ServeHTTP handles POST /api/v1/imports, POST /api/v1/imports/preview and GET /api/v1/imports.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.importer == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	preview := strings.HasSuffix(strings.TrimRight(r.URL.Path, "/"), "/preview")
	switch {
	case r.Method == http.MethodGet && !preview:
		h.list(w, r)
	case r.Method == http.MethodPost:
		h.upload(w, r, preview)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := ingest.MaxJobHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}
	jobs, err := h.importer.History(r.Context(), limit)
	if err != nil {
		http.Error(w, "query import history error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, preview bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*maxFilesPerRequest+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request too large", Reason: "too_large"})
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	dataset, err := application.ParseDataset(r.FormValue("dataset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: err.Error(), Reason: "unsupported_dataset"})
		return
	}
	var mapping ingest.ColumnMapping
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			http.Error(w, "invalid mapping", http.StatusBadRequest)
			return
		}
	}
	systemID, err := auth.ResolveSystemID(r.Context(), r.FormValue("system_id"))
	if err != nil {
		writeError(w, http.StatusForbidden, errorBody{Error: err.Error(), Reason: "system_mismatch"})
		return
	}

	files := append(r.MultipartForm.File["file"], r.MultipartForm.File["files"]...)
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, errorBody{Error: ErrNoFiles.Error(), Reason: "no_files"})
		return
	}
	if len(files) > maxFilesPerRequest {
		http.Error(w, "too many files", http.StatusBadRequest)
		return
	}
	for _, fh := range files {
		if status, body, ok := h.validate(fh); !ok {
			writeError(w, status, body)
			return
		}
	}

	var (
		summaries []application.Summary
		previews  []application.Preview
	)
	for _, fh := range files {
		req, closeFn, err := buildRequest(fh, dataset, systemID, r, mapping)
		if err != nil {
			http.Error(w, "read upload error", http.StatusBadRequest)
			return
		}
		if preview {
			p, err := h.importer.Preview(req)
			closeFn()
			if err != nil {
				status, body := classify(err)
				body.File = fh.Filename
				writeError(w, status, body)
				return
			}
			previews = append(previews, p)
			continue
		}
		summary, err := h.importer.Import(r.Context(), req)
		closeFn()
		if err != nil {
			status, body := classify(err)
			body.File = fh.Filename
			writeError(w, status, body)
			return
		}
		summaries = append(summaries, summary)
	}

	if preview {
		writeJSON(w, http.StatusOK, map[string]any{"previews": previews})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": summaries})
}

func (h *Handler) validate(fh *multipart.FileHeader) (int, errorBody, bool) {
	if !parser.Supported(fh.Filename) {
		return http.StatusUnsupportedMediaType, errorBody{
			Error:  fmt.Sprintf("%s: %s", parser.ErrUnsupportedExtension, fh.Filename),
			Reason: "unsupported_extension",
			File:   fh.Filename,
		}, false
	}
	if fh.Size > h.maxBytes {
		return http.StatusRequestEntityTooLarge, errorBody{
			Error:  fmt.Sprintf("%s: %s", ErrFileTooLarge, fh.Filename),
			Reason: "too_large",
			File:   fh.Filename,
		}, false
	}
	return 0, errorBody{}, true
}

func buildRequest(fh *multipart.FileHeader, dataset application.Dataset, systemID string, r *http.Request, mapping ingest.ColumnMapping) (application.Request, func(), error) {
	file, err := fh.Open()
	if err != nil {
		return application.Request{}, nil, err
	}
	return application.Request{
		FileName: fh.Filename,
		Body:     file,
		Dataset:  dataset,
		SystemID: systemID,
		Source:   r.FormValue("source"),
		Sheet:    r.FormValue("sheet"),
		Mapping:  mapping,
	}, func() { _ = file.Close() }, nil
}

func classify(err error) (int, errorBody) {
	var missing *ingest.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Reason: "missing_columns", MissingColumns: missing.Columns}
	case errors.Is(err, ingest.ErrNoValidData):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Reason: "no_valid_data"}
	case errors.Is(err, parser.ErrUnsupportedExtension):
		return http.StatusUnsupportedMediaType, errorBody{Error: err.Error(), Reason: "unsupported_extension"}
	case errors.Is(err, parser.ErrEmptyFile), errors.Is(err, parser.ErrSheetNotFound):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Reason: "unreadable_file"}
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: "store unavailable", Reason: "store_unavailable", Retryable: true}
	default:
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Reason: "parse_error"}
	}
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
