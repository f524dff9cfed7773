package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/de-tools/sales-atlas/pkg/adapters"
	"github.com/de-tools/sales-atlas/pkg/models/api"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

const (
	formField       = "file"
	DownloadPath    = "/api/v1/reports/"
	defaultMaxBytes = 32 << 20
)

// Pipeline runs one uploaded dataset.
type Pipeline interface {
	Analyze(ctx context.Context, r io.Reader) (*domain.Analysis, error)
	Generate(ctx context.Context, r io.Reader) (*domain.Result, error)
}

// DocumentStore holds generated documents until they are downloaded.
type DocumentStore interface {
	Put(doc *domain.Document) string
	Get(id string) (*domain.Document, bool)
}

// Publisher copies a generated document to external storage.
type Publisher interface {
	Publish(ctx context.Context, doc *domain.Document) (string, error)
}

type Handler struct {
	pipeline  Pipeline
	store     DocumentStore
	publisher Publisher
	maxBytes  int64
}

type Option func(*Handler)

func WithPublisher(p Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) { h.maxBytes = n }
}

func NewHandler(pipeline Pipeline, store DocumentStore, opts ...Option) *Handler {
	h := &Handler{
		pipeline: pipeline,
		store:    store,
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Analyze previews the uploaded dataset: the first cleaned rows, every
// aggregation and, when the data allows, the insights.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	file, name, err := h.upload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	analysis, err := h.pipeline.Analyze(ctx, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var insights *domain.Insights
	in, err := report.ComputeInsights(analysis.Aggregations)
	switch {
	case err == nil:
		insights = &in
	case errors.Is(err, domain.ErrEmptyResult):
		logger.Debug().Err(err).Msg("no insights for dataset")
	default:
		writeError(w, r, err)
		return
	}

	logger.Info().
		Str("file", name).
		Int("rows", analysis.Table.Len()).
		Int("dropped", analysis.RowsDropped).
		Msg("dataset analysed")
	render.JSON(w, r, adapters.MapAnalysisDomainToApi(analysis, insights))
}

// CreateReport generates the PDF for the uploaded dataset and keeps it for
// download.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	file, name, err := h.upload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	result, err := h.pipeline.Generate(ctx, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc := result.Document
	id := h.store.Put(doc)
	res := adapters.MapDocumentDomainToApi(id, DownloadPath+id, doc)

	if h.publisher != nil {
		url, err := h.publisher.Publish(ctx, doc)
		if err != nil {
			// The document is still downloadable.
			logger.Error().Err(err).Str("id", id).Msg("failed to publish report")
		} else {
			res.PublishedURL = url
		}
	}

	logger.Info().
		Str("file", name).
		Str("id", id).
		Int("pages", doc.Pages).
		Msg("report generated")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}

// DownloadReport serves a previously generated document as an attachment.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, ok := h.store.Get(id)
	if !ok {
		_ = render.Render(w, r, api.NewError(http.StatusNotFound, api.ErrorCodeNotFound,
			fmt.Sprintf("report %q not found or expired", id)))
		return
	}

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("failed to write report")
	}
}

var errNoFile = errors.New("missing upload field \"file\"")

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", tooLarge
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	return file, header.Filename, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var (
		apiErr   *api.APIError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, errNoFile):
		apiErr = api.NewError(http.StatusBadRequest, api.ErrorCodeBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		apiErr = api.NewError(http.StatusRequestEntityTooLarge, api.ErrorCodeTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, domain.ErrMalformedInput):
		apiErr = api.NewError(http.StatusBadRequest, api.ErrorCodeMalformedInput, err.Error())
	case errors.Is(err, domain.ErrMissingColumn):
		apiErr = api.NewError(http.StatusUnprocessableEntity, api.ErrorCodeMissingColumn, err.Error())
	case errors.Is(err, domain.ErrEmptyResult):
		apiErr = api.NewError(http.StatusUnprocessableEntity, api.ErrorCodeEmptyResult, err.Error())
	default:
		logger.Error().Err(err).Msg("request failed")
		apiErr = api.NewError(http.StatusInternalServerError, api.ErrorCodeInternal, "report generation failed")
	}

	if err := render.Render(w, r, apiErr); err != nil {
		logger.Error().Err(err).Msg("failed to render error")
	}
}
