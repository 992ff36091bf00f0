package httpservice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubsub-core/internal/health"
)

// recordingModule 记录生命周期调用的模块
type recordingModule struct {
	started, stopped bool
	deps             *ModuleDependencies
}

func (m *recordingModule) Name() string { return "recording" }

func (m *recordingModule) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/echo/{word}", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, mux.Vars(r)["word"])
	}).Methods(http.MethodGet)
}

func (m *recordingModule) SetDependencies(deps *ModuleDependencies) { m.deps = deps }
func (m *recordingModule) Start() error                             { m.started = true; return nil }
func (m *recordingModule) Stop() error                              { m.stopped = true; return nil }

func decodeResponse(t *testing.T, body io.Reader) ResponseData {
	t.Helper()
	var resp ResponseData
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestHTTPService_HealthWithoutManager(t *testing.T) {
	svc := NewHTTPService(context.Background(), nil, nil)
	defer svc.Stop()

	for _, path := range []string{"/healthz", "/ready"} {
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, decodeResponse(t, rec.Body).Success, path)
	}
}

func TestHTTPService_HealthManagerStatus(t *testing.T) {
	hm := health.NewHealthManager(context.Background(), "node-1", "test")
	defer hm.Close()
	svc := NewHTTPService(context.Background(), nil, &ModuleDependencies{HealthManager: hm})
	defer svc.Stop()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"node_id":"node-1"`)
	assert.Equal(t, http.StatusOK, get("/ready").Code)

	hm.MarkDraining()
	assert.Equal(t, http.StatusServiceUnavailable, get("/healthz").Code)
	rec = get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"draining"`)
}

func TestHTTPService_LandingPage(t *testing.T) {
	svc := NewHTTPService(context.Background(), nil, nil)
	defer svc.Stop()

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestHTTPService_CORS(t *testing.T) {
	cfg := DefaultHTTPServiceConfig()
	cfg.CORS.Enabled = true
	cfg.CORS.AllowedOrigins = []string{"http://dash.local"}
	svc := NewHTTPService(context.Background(), cfg, nil)
	defer svc.Stop()

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://dash.local")
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPService_ModuleLifecycle(t *testing.T) {
	cfg := DefaultHTTPServiceConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	deps := &ModuleDependencies{}
	svc := NewHTTPService(context.Background(), cfg, deps)

	mod := &recordingModule{}
	svc.RegisterModule(mod)
	svc.RegisterModule(nil)
	assert.Same(t, deps, mod.deps)
	assert.Nil(t, svc.Addr())

	require.NoError(t, svc.Start())
	assert.True(t, mod.started)
	require.NotNil(t, svc.Addr())

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/echo/hello", svc.Addr()))
	require.NoError(t, err)
	body := decodeResponse(t, resp.Body)
	resp.Body.Close()
	assert.Equal(t, "hello", body.Data)

	require.NoError(t, svc.Stop())
	assert.True(t, mod.stopped)
	assert.Error(t, svc.Start())

	_, err = client.Get(fmt.Sprintf("http://%s/healthz", svc.Addr()))
	assert.Error(t, err)
}

func TestHTTPService_BodySizeLimit(t *testing.T) {
	cfg := DefaultHTTPServiceConfig()
	cfg.MaxBodySize = 8
	svc := NewHTTPService(context.Background(), cfg, nil)
	defer svc.Stop()
	svc.Router().HandleFunc("/body", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		RespondJSON(w, http.StatusOK, nil)
	}).Methods(http.MethodPost)

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/body", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, decodeResponse(t, rec.Body).Success)
}
