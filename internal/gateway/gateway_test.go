package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/fintrack-server/internal/testutil"
)

// echoUpstream answers with its name and the request it saw.
func echoUpstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Access-Control-Allow-Origin", "http://upstream.invalid")
		w.Header().Set("X-Upstream", name)
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, r.Method+" "+r.URL.RequestURI()+" "+r.Header.Get("Authorization")+" "+string(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGateway_Routes(t *testing.T) {
	auth := echoUpstream(t, "auth")
	payment := echoUpstream(t, "payment")
	budget := echoUpstream(t, "budget")

	gw, err := New(Upstreams{Auth: auth.URL, Payment: payment.URL, Budget: budget.URL}, []string{"*"}, testutil.MakeNoopLogger())
	require.NoError(t, err)

	tests := []struct {
		method, target, body string
		wantUpstream         string
		wantEcho             string
	}{
		{method: http.MethodPost, target: "/api/auth/login", body: `{"email":"a"}`, wantUpstream: "auth", wantEcho: `POST /api/auth/login Bearer t {"email":"a"}`},
		{method: http.MethodGet, target: "/api/payments", wantUpstream: "payment", wantEcho: "GET /api/payments Bearer t "},
		{method: http.MethodGet, target: "/api/payments/p1/attachments?key=a%2Fb", wantUpstream: "payment", wantEcho: "GET /api/payments/p1/attachments?key=a%2Fb Bearer t "},
		{method: http.MethodDelete, target: "/api/budgets/b1", wantUpstream: "budget", wantEcho: "DELETE /api/budgets/b1 Bearer t "},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			req.Header.Set("Authorization", "Bearer t")
			req.Header.Set("Origin", "http://app.example.com")

			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.Equal(t, tt.wantUpstream, rec.Header().Get("X-Upstream"))
			assert.Equal(t, tt.wantEcho, rec.Body.String())
			assert.Equal(t, []string{"*"}, rec.Header().Values("Access-Control-Allow-Origin"))
		})
	}
}

func TestGateway_LocalRoutes(t *testing.T) {
	gw, err := New(Upstreams{Auth: "http://127.0.0.1:1", Payment: "http://127.0.0.1:1", Budget: "http://127.0.0.1:1"}, []string{"*"}, testutil.MakeNoopLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Bad Gateway"}`, rec.Body.String())
}

func TestGateway_InvalidUpstream(t *testing.T) {
	_, err := New(Upstreams{Auth: "localhost:4003", Payment: "http://p", Budget: "http://b"}, nil, testutil.MakeNoopLogger())
	assert.ErrorContains(t, err, "/api/auth upstream")
}
