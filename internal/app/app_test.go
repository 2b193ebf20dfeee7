package app

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corrsvc/internal/attributes"
	"corrsvc/internal/config"
	"corrsvc/internal/infrastructure"
	"corrsvc/internal/services"
)

// newTestApplication wires an application around fixture config and a
// fixture attribute table, skipping config/file loading.
func newTestApplication(t *testing.T) *Application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Security.EnableCORS = true
	cfg.Security.AllowedOrigins = []string{"*"}
	cfg.Upload.MaxSizeBytes = 1 << 20

	desc := attributes.NewDescription()
	desc.Add("profitability", "roe")
	desc.Add("profitability", "roa")

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	require.NoError(t, err)

	app := &Application{
		Config:             cfg,
		Logger:             logger,
		OTelProviders:      providers,
		Attributes:         desc,
		CorrelationService: services.NewCorrelationService(desc, logger, nil),
		HealthService: services.NewHealthService(desc, services.VersionInfo{
			Version: Version,
			Service: AppName,
		}, logger),
	}
	app.setupRouter()
	return app
}

func TestRouter_HealthEndpoints(t *testing.T) {
	app := newTestApplication(t)

	for _, path := range []string{"/api/health", "/api/health/live", "/api/health/ready", "/api/version"} {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "GET %s", path)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CorrelationUpload(t *testing.T) {
	app := newTestApplication(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "indicators.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("sector_unique_id,roe,roa\n" +
		"tech,0.1,0.2\ntech,0.2,0.4\ntech,0.3,0.5\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/correlation", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sector_name")
	assert.Contains(t, rec.Body.String(), "profitability")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_UnknownRoute(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
