package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/sales-atlas/pkg/models/api"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/services/pipeline"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/de-tools/sales-atlas/pkg/store/artifact"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const csvBody = "Order Date,Sales\n2024-01-01,1\n"

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Analyze(ctx context.Context, r io.Reader) (*domain.Analysis, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(string(body))
	a, _ := args.Get(0).(*domain.Analysis)
	return a, args.Error(1)
}

func (m *mockPipeline) Generate(ctx context.Context, r io.Reader) (*domain.Result, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(string(body))
	res, _ := args.Get(0).(*domain.Result)
	return res, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, doc *domain.Document) (string, error) {
	args := m.Called(doc.FileName)
	return args.String(0), args.Error(1)
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Post("/api/v1/analysis", h.Analyze)
	r.Post("/api/v1/reports", h.CreateReport)
	r.Get("/api/v1/reports/{id}", h.DownloadReport)
	return r
}

func uploadRequest(t *testing.T, path, field, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "sales.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sampleResult() *domain.Result {
	insights := domain.Insights{TotalSales: 300, TotalProfit: 30, BestCategory: "A", BestRegion: "West", TopProduct: "P"}
	return &domain.Result{
		Insights: insights,
		Document: &domain.Document{
			FileName:    "sales_report.pdf",
			MimeType:    "application/pdf",
			Content:     []byte("%PDF-1.3 body"),
			Pages:       3,
			GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Insights:    insights,
		},
	}
}

func sampleAnalysis() *domain.Analysis {
	return &domain.Analysis{
		Table:    &domain.Table{Columns: []string{"Sales"}},
		RowsRead: 0,
		Aggregations: &domain.Aggregations{
			Categories:  []domain.GroupTotal{{Key: "A", Sales: 5, Profit: 1}},
			Regions:     []domain.GroupTotal{{Key: "West", Profit: 1}},
			TopProducts: []domain.GroupTotal{{Key: "P", Sales: 5}},
		},
	}
}

func decodeError(t *testing.T, body io.Reader) api.APIError {
	t.Helper()
	var e api.APIError
	require.NoError(t, json.NewDecoder(body).Decode(&e))
	return e
}

func TestCreateReport_ThenDownload(t *testing.T) {
	p := &mockPipeline{}
	p.On("Generate", csvBody).Return(sampleResult(), nil)
	router := newRouter(NewHandler(p, artifact.NewStore(time.Minute)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/reports", "file", csvBody))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res api.ReportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "sales_report.pdf", res.FileName)
	assert.Equal(t, "/api/v1/reports/"+res.ID, res.DownloadURL)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "1. Total Sales: $300.00", res.Insights.Lines[0])
	assert.Empty(t, res.PublishedURL)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, res.DownloadURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sales_report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 body", rec.Body.String())
	p.AssertExpectations(t)
}

func TestCreateReport_Publish(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		err     error
		wantURL string
	}{
		{"published", "s3://bucket/reports/x.pdf", nil, "s3://bucket/reports/x.pdf"},
		{"publish failure keeps download", "", assert.AnError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPipeline{}
			p.On("Generate", csvBody).Return(sampleResult(), nil)
			pub := &mockPublisher{}
			pub.On("Publish", "sales_report.pdf").Return(tt.url, tt.err)
			router := newRouter(NewHandler(p, artifact.NewStore(time.Minute), WithPublisher(pub)))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, "/api/v1/reports", "file", csvBody))
			require.Equal(t, http.StatusCreated, rec.Code)

			var res api.ReportResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
			assert.Equal(t, tt.wantURL, res.PublishedURL)
			pub.AssertExpectations(t)
		})
	}
}

func TestCreateReport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed", fmt.Errorf("clean: %w: line 2", domain.ErrMalformedInput), http.StatusBadRequest, api.ErrorCodeMalformedInput},
		{"missing column", fmt.Errorf("load: %w: Region", domain.ErrMissingColumn), http.StatusUnprocessableEntity, api.ErrorCodeMissingColumn},
		{"empty", fmt.Errorf("insights: %w: top products", domain.ErrEmptyResult), http.StatusUnprocessableEntity, api.ErrorCodeEmptyResult},
		{"io", fmt.Errorf("document: %w", assert.AnError), http.StatusInternalServerError, api.ErrorCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPipeline{}
			p.On("Generate", csvBody).Return(nil, tt.err)
			store := artifact.NewStore(time.Minute)
			router := newRouter(NewHandler(p, store))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, "/api/v1/reports", "file", csvBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			e := decodeError(t, rec.Body)
			assert.Equal(t, tt.wantStatus, e.StatusCode)
			assert.Equal(t, tt.wantCode, e.ErrorCode)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestCreateReport_MissingFile(t *testing.T) {
	p := &mockPipeline{}
	router := newRouter(NewHandler(p, artifact.NewStore(time.Minute)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/reports", "other", csvBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, api.ErrorCodeBadRequest, decodeError(t, rec.Body).ErrorCode)
	p.AssertNotCalled(t, "Generate", mock.Anything)
}

func TestDownloadReport_NotFound(t *testing.T) {
	router := newRouter(NewHandler(&mockPipeline{}, artifact.NewStore(time.Minute)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, api.ErrorCodeNotFound, decodeError(t, rec.Body).ErrorCode)
}

func TestAnalyze(t *testing.T) {
	p := &mockPipeline{}
	p.On("Analyze", csvBody).Return(sampleAnalysis(), nil)
	router := newRouter(NewHandler(p, artifact.NewStore(time.Minute)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/analysis", "file", csvBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res api.AnalysisResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, []string{"Sales"}, res.Columns)
	require.NotNil(t, res.Insights)
	assert.Equal(t, "A", res.Insights.BestCategory)
}

func TestAnalyze_EmptyDatasetHasNoInsights(t *testing.T) {
	a := sampleAnalysis()
	a.Aggregations = &domain.Aggregations{}
	p := &mockPipeline{}
	p.On("Analyze", csvBody).Return(a, nil)
	router := newRouter(NewHandler(p, artifact.NewStore(time.Minute)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/analysis", "file", csvBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var res api.AnalysisResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Nil(t, res.Insights)
}

func TestIndex(t *testing.T) {
	router := newRouter(NewHandler(&mockPipeline{}, artifact.NewStore(time.Minute)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `type="file" name="file"`))
	assert.True(t, strings.Contains(rec.Body.String(), "Generate PDF Report"))
}

func TestNonFiniteAmounts_AreRejected(t *testing.T) {
	const header = "Order Date,Ship Date,Sales,Profit,Discount,Category,Sub-Category,Region,Product Name\n"
	p := pipeline.New(
		analysis.NewMemoryAggregator(analysis.DefaultTopProducts),
		report.NewBuilder(report.WithScratchDir(t.TempDir())),
	)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"analysis nan sales", "/api/v1/analysis", header + "1/15/2024,1/18/2024,NaN,10,0,A,Chairs,East,Chair\n"},
		{"report infinite sales", "/api/v1/reports", header + "1/15/2024,1/18/2024,Inf,10,0,A,Chairs,East,Chair\n"},
		{"report nan discount", "/api/v1/reports", header +
			"1/15/2024,1/18/2024,100,10,NaN,A,Chairs,East,Chair\n" +
			"2/3/2024,2/5/2024,200,20,NaN,A,Tables,West,Table\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := artifact.NewStore(time.Minute)
			router := newRouter(NewHandler(p, store))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, tt.path, "file", tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			e := decodeError(t, rec.Body)
			assert.Equal(t, api.ErrorCodeMalformedInput, e.ErrorCode)
			assert.Equal(t, 0, store.Len())
		})
	}
}
