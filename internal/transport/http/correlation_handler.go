package http

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"corrsvc/internal/dataset"
	apierrors "corrsvc/internal/errors"
	"corrsvc/internal/infrastructure"
)

// uploadField is the multipart form field carrying the dataset file
const uploadField = "file"

// CorrelationHandler handles dataset uploads and returns the per-sector,
// per-group correlation report.
type CorrelationHandler struct {
	service       CorrelationServiceInterface
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
	maxUploadSize int64
}

// NewCorrelationHandler creates a new correlation handler
func NewCorrelationHandler(service CorrelationServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadSize int64) *CorrelationHandler {
	return &CorrelationHandler{
		service:       service,
		logger:        logger.With(slog.String("component", "correlation_handler")),
		errorHandler:  errorHandler,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the correlation routes
func (h *CorrelationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Compute)
	return r
}

// Compute handles POST /api/correlation. It validates the multipart upload,
// parses the dataset, and renders the computed report. Validation failures
// are reported immediately; no partial processing occurs.
func (h *CorrelationHandler) Compute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := infrastructure.GetTraceID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrEmptyFilename)
		return
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidFileType)
		return
	}

	table, err := dataset.ParseCSV(file)
	if err != nil {
		if errors.Is(err, dataset.ErrMissingSectorColumn) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(dataset.SectorColumn, err.Error()))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.UnparseableUpload(err))
		return
	}

	h.logger.InfoContext(ctx, "computing correlation report",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", len(table.Columns)),
	)

	render.JSON(w, r, h.service.ComputeReport(ctx, table))
}
