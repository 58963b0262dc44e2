package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

func testConfig(t *testing.T, mr *miniredis.Miniredis) *config.AppConfig {
	t.Helper()

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("miniredis port: %v", err)
	}

	return &config.AppConfig{
		App: config.AppSettings{Name: "commerce-api", Env: "development"},
		Redis: config.RedisSettings{
			Enabled:          true,
			Host:             mr.Host(),
			Port:             port,
			PermissionPrefix: "commerce:permissions",
			CounterPrefix:    "commerce:counter",
			RateLimitPrefix:  "commerce:ratelimit",
		},
		JWT: config.JWTSettings{
			KeyDirectory:   filepath.Join(t.TempDir(), "missing"),
			Issuer:         "commerce-api",
			Audience:       "commerce",
			AccessTokenTTL: time.Hour,
		},
		RateLimit: config.RateLimitSettings{
			Enabled:             true,
			WindowDuration:      time.Minute,
			LoginMaxAttempts:    5,
			RegisterMaxAttempts: 1,
			CheckoutMaxAttempts: 5,
		},
		Argon2:   config.Argon2Settings{Memory: 8192, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Store:    config.StoreSettings{Driver: config.StoreDriverMemory, SeedRoles: true, EnsureIndex: true},
		Sequence: config.SequenceSettings{Driver: config.SequenceDriverRedis},
		Auth:     config.AuthSettings{CookieName: "access_token", PermissionCacheTTL: time.Minute},
	}
}

func register(t *testing.T, a *Application, email string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	body := `{"firstName":"Ada","lastName":"Lovelace","email":"` + email + `","password":"Analytical-Engine-1843!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	decoded := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w, decoded
}

func TestNewWiresMemoryStoreWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := mr.Set("commerce:counter:users", "41"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	a, err := New(context.Background(), testConfig(t, mr))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.close)

	if a.grpcServer != nil {
		t.Fatalf("gRPC server must stay disabled")
	}

	w, body := register(t, a, "ada@example.com")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %v", w.Code, body)
	}
	user := body["data"].(map[string]any)
	if user["custId"] != "CUST0042" {
		t.Fatalf("expected counter to continue from 41, got %v", user["custId"])
	}

	w, body = register(t, a, "grace@example.com")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected register to be rate limited, got %d: %v", w.Code, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNewFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	mr.Close()

	if _, err := New(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "init redis") {
		t.Fatalf("expected redis init error, got %v", err)
	}
}

func TestNewBuildsGRPCServer(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	cfg.GRPC = config.GRPCSettings{Enabled: true, Host: "127.0.0.1", Port: 0}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.close)

	if a.grpcServer == nil || a.grpcAddr != "127.0.0.1:0" {
		t.Fatalf("expected gRPC server on 127.0.0.1:0, got %q", a.grpcAddr)
	}
	if !a.grpcServer.RefreshHealth(context.Background()) {
		t.Fatalf("expected healthy dependencies")
	}
}
