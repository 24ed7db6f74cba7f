package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wapistore/internal/auth"
	"wapistore/internal/config"
	"wapistore/internal/domain"
	"wapistore/internal/events"
	"wapistore/internal/http/handlers"
	applog "wapistore/internal/log"
	"wapistore/internal/repos"
	"wapistore/internal/upload"
)

const testSecret = "test-secret-0123456789"

type recorder struct {
	mu  sync.Mutex
	evs []events.Envelope
}

func (r *recorder) Publish(_ context.Context, ev events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	app    *fiber.App
	db     *sqlx.DB
	cfg    config.Config
	tokens *auth.Tokens
	events *recorder
}

type envOption func(*config.Config, *handlers.Limits, *handlers.External)

func withLimits(l handlers.Limits) envOption {
	return func(_ *config.Config, lim *handlers.Limits, _ *handlers.External) { *lim = l }
}

func withRelay(r upload.Relay) envOption {
	return func(_ *config.Config, _ *handlers.Limits, ext *handlers.External) { ext.Relay = r }
}

func withBodyLimit(n int) envOption {
	return func(cfg *config.Config, _ *handlers.Limits, _ *handlers.External) { cfg.BodyLimit = n }
}

// newTestEnv builds the full app over an in-memory database.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := config.Config{
		DBDriver:       "sqlite",
		DBDSN:          ":memory:",
		JWTSecret:      testSecret,
		JWTIssuer:      "wapistore",
		SessionTTL:     time.Hour,
		BodyLimit:      64 << 10,
		UploadMaxBytes: 1 << 20,
	}
	db, err := repos.OpenDB(context.Background(), cfg.DBDriver, cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec := &recorder{}
	ext := handlers.External{Events: rec}
	var lim handlers.Limits
	for _, o := range opts {
		o(&cfg, &lim, &ext)
	}
	deps := handlers.NewDeps(db, cfg, ext)
	return &testEnv{
		app:    handlers.NewApp(cfg, deps, nil, lim),
		db:     db,
		cfg:    cfg,
		tokens: auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL),
		events: rec,
	}
}

// addUser stores an account with password "Passw0rd!" and returns a bearer token for it.
func (e *testEnv) addUser(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.MinCost)
	require.NoError(t, err)
	now := domain.Now()
	u := domain.User{
		ID: id, Email: id + "@example.com", Name: "User " + id, Hash: string(hash),
		Role: role, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repos.NewUserRepo(e.db).Create(context.Background(), u))
	tok, _, err := e.tokens.Mint(u)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) addItem(t *testing.T, id, price string, qty int) {
	t.Helper()
	now := domain.Now()
	require.NoError(t, repos.NewCatalogRepo(e.db).Create(context.Background(), domain.CatalogItem{
		ID: id, Title: "Business API " + id, Description: "verified sender", File: "https://cdn.example.com/" + id + ".png",
		Price: decimal.RequireFromString(price), Quantity: qty, CreatedAt: now, UpdatedAt: now,
	}))
}

func (e *testEnv) stock(t *testing.T, id string) int {
	t.Helper()
	it, err := repos.NewCatalogRepo(e.db).ByID(context.Background(), id)
	require.NoError(t, err)
	return it.Quantity
}

// do sends a JSON request; token may be empty for anonymous calls.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Details    map[string]any    `json:"details"`
	Pagination domain.Pagination `json:"pagination"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func decodeData(t *testing.T, resp *http.Response, dest any) envelope {
	t.Helper()
	env := decode(t, resp)
	require.True(t, env.Success, "message=%s", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, dest))
	return env
}

type logLine struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Status int            `json:"status"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureRaw returns everything logged while fn runs.
func captureRaw(t *testing.T, fn func()) string {
	t.Helper()
	buf := &lockedBuf{}
	restore := applog.SetOutput(buf)
	fn()
	restore()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.b.String()
}

func parseLines(raw string) []logLine {
	var out []logLine
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		var l logLine
		if json.Unmarshal([]byte(line), &l) == nil {
			out = append(out, l)
		}
	}
	return out
}

func captureLogs(t *testing.T, fn func()) []logLine {
	t.Helper()
	return parseLines(captureRaw(t, fn))
}

func findAction(lines []logLine, action string) *logLine {
	for i := range lines {
		if lines[i].Action == action {
			return &lines[i]
		}
	}
	return nil
}
