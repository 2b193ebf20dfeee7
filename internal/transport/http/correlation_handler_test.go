package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corrsvc/internal/dataset"
	apierrors "corrsvc/internal/errors"
	"corrsvc/internal/services"
)

// mockCorrelationService records the table it was handed and returns a canned
// report.
type mockCorrelationService struct {
	report []services.SectorResult
	table  *dataset.Table
}

func (m *mockCorrelationService) ComputeReport(ctx context.Context, table *dataset.Table) []services.SectorResult {
	m.table = table
	return m.report
}

func newTestHandler(svc CorrelationServiceInterface) *CorrelationHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCorrelationHandler(svc, logger, apierrors.NewErrorHandler(logger, false), 1<<20)
}

// multipartBody builds a multipart body with one file part
func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", "text/csv")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func postUpload(t *testing.T, h *CorrelationHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestCorrelationHandler_Compute(t *testing.T) {
	svc := &mockCorrelationService{report: []services.SectorResult{
		{Sector: "tech", GroupMatrices: nil},
	}}
	h := newTestHandler(svc)

	body, contentType := multipartBody(t, "file", "indicators.csv",
		"sector_unique_id,roe,roa\ntech,0.1,0.2\ntech,0.2,0.4\n")

	rec := postUpload(t, h, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var report []services.SectorResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report, 1)
	assert.Equal(t, "tech", report[0].Sector)

	// The parsed table reached the service
	require.NotNil(t, svc.table)
	assert.Equal(t, 2, svc.table.NumRows())
	assert.Equal(t, []string{"roe", "roa"}, svc.table.Columns)
}

func TestCorrelationHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name         string
		field        string
		filename     string
		content      string
		expectedType string
	}{
		{
			name:         "wrong form field",
			field:        "upload",
			filename:     "indicators.csv",
			content:      "sector_unique_id,roe\ntech,0.1\n",
			expectedType: "/errors/upload/missing-file",
		},
		{
			name:         "empty filename",
			field:        "file",
			filename:     "",
			content:      "sector_unique_id,roe\ntech,0.1\n",
			expectedType: "/errors/upload/missing-file",
		},
		{
			name:         "wrong file type",
			field:        "file",
			filename:     "indicators.xlsx",
			content:      "sector_unique_id,roe\ntech,0.1\n",
			expectedType: "/errors/upload/invalid-file",
		},
		{
			name:         "missing sector column",
			field:        "file",
			filename:     "indicators.csv",
			content:      "industry,roe\ntech,0.1\n",
			expectedType: "/errors/validation",
		},
		{
			name:         "malformed csv",
			field:        "file",
			filename:     "indicators.csv",
			content:      "sector_unique_id,roe\ntech,\"bad\n",
			expectedType: "/errors/upload/unparseable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCorrelationService{}
			h := newTestHandler(svc)

			body, contentType := multipartBody(t, tt.field, tt.filename, tt.content)
			rec := postUpload(t, h, body, contentType)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.expectedType, problem["type"])

			// Validation failures stop before any computation
			assert.Nil(t, svc.table)
		})
	}
}

func TestCorrelationHandler_NotMultipart(t *testing.T) {
	h := newTestHandler(&mockCorrelationService{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorrelationHandler_PayloadTooLarge(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewCorrelationHandler(&mockCorrelationService{}, logger, apierrors.NewErrorHandler(logger, false), 64)

	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'x'
	}
	body, contentType := multipartBody(t, "file", "indicators.csv", string(big))

	rec := postUpload(t, h, body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
