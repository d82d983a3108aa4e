package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httpcontext "github.com/dtroode/fintrack-server/internal/api/http/context"
	"github.com/dtroode/fintrack-server/internal/repository"
	"github.com/dtroode/fintrack-server/internal/service"
	"github.com/dtroode/fintrack-server/internal/testutil"
	"github.com/dtroode/fintrack-server/internal/token"
)

type services struct {
	auth    http.Handler
	budget  http.Handler
	payment http.Handler
	stop    func()
}

func makeServices(t *testing.T) services {
	t.Helper()
	kv, mr := testutil.MakeKV(t)
	pub := &testutil.Publisher{}
	log := testutil.MakeNoopLogger()
	tokens := token.NewJWT("test-secret", time.Hour)

	rt := New(tokens, httpcontext.NewManager(), kv, []string{"*"}, log)
	return services{
		auth:    rt.Auth(service.NewAuth(repository.NewUsers(kv, pub, log), tokens, log, bcrypt.MinCost)),
		budget:  rt.Budget(service.NewBudget(repository.NewBudgets(kv, pub, log), log)),
		payment: rt.Payment(service.NewPayment(repository.NewPayments(kv, pub, log), nil, log), 1<<20),
		stop:    mr.Close,
	}
}

func do(t *testing.T, h http.Handler, method, target, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Flow(t *testing.T) {
	svc := makeServices(t)

	rec := do(t, svc.auth, http.MethodPost, "/api/auth/register",
		`{"name":"Ada","email":"Ada@Example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session struct {
		User  struct{ ID, Email string }
		Token string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "ada@example.com", session.User.Email)
	require.NotEmpty(t, session.Token)

	rec = do(t, svc.auth, http.MethodPost, "/api/auth/register",
		`{"name":"Eve","email":"ada@example.com","password":"secret2"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email in use"}`, rec.Body.String())

	rec = do(t, svc.auth, http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"nope"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())

	rec = do(t, svc.auth, http.MethodGet, "/api/auth/me", "", session.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), session.User.ID)

	budget := `{"category":"groceries","period":"monthly","amount":300,"currency":"EUR"}`
	rec = do(t, svc.budget, http.MethodPost, "/api/budgets", budget, session.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, svc.budget, http.MethodPost, "/api/budgets", budget, session.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Duplicate budget for category and period"}`, rec.Body.String())

	rec = do(t, svc.budget, http.MethodGet, "/api/budgets", "", session.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Budgets []struct{ ID string } `json:"budgets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Budgets, 1)

	rec = do(t, svc.budget, http.MethodDelete, "/api/budgets/"+list.Budgets[0].ID, "", session.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, svc.budget, http.MethodGet, "/api/budgets/"+list.Budgets[0].ID, "", session.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	payment := `{"title":"Rent","amount":"1200","currency":"EUR","type":"expense","category":"rent","status":"pending","date":"2025-03-01"}`
	rec = do(t, svc.payment, http.MethodPost, "/api/payments", payment, session.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Payment struct{ ID string } `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, svc.payment, http.MethodPost, "/api/payments/bulk-delete",
		`{"ids":["`+created.Payment.ID+`","unknown"]}`, session.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, svc.payment, http.MethodGet, "/api/payments", "", session.Token)
	assert.JSONEq(t, `{"payments":[]}`, rec.Body.String())

	rec = do(t, svc.payment, http.MethodPost, "/api/payments/"+created.Payment.ID+"/attachments", "", session.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Unauthorized(t *testing.T) {
	svc := makeServices(t)

	for _, target := range []string{"/api/budgets", "/api/budgets/b1"} {
		rec := do(t, svc.budget, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	}

	rec := do(t, svc.payment, http.MethodGet, "/api/payments", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, svc.auth, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	svc := makeServices(t)

	rec := do(t, svc.budget, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(t, svc.auth, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = do(t, svc.auth, http.MethodGet, "/api/auth/login", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	svc.stop()
	rec = do(t, svc.payment, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"ok":false}`, rec.Body.String())
}

func TestRouter_CORS(t *testing.T) {
	svc := makeServices(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/budgets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	svc.budget.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}
