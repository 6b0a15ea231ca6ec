package adminapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ryxu-xo/euralink/internal/gateway"
	"github.com/ryxu-xo/euralink/internal/nodetest"
	"github.com/ryxu-xo/euralink/internal/orchestrator"
)

type noopSender struct{}

func (noopSender) SendVoiceCommand(cmd gateway.VoiceJoinCommand) error { return nil }

func adminToken(t *testing.T, secret, role string) string {
	t.Helper()
	claims := adminClaims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	orch := orchestrator.New(orchestrator.Config{BotUserID: "bot-1"}, noopSender{})
	return New(Config{Addr: ":0", JWTSecret: "test-secret"}, orch, nil, "unknown")
}

func TestListNodesReturnsRegisteredNodes(t *testing.T) {
	fake := nodetest.New(t, nil)
	defer fake.Close()

	s := newTestServer(t)
	s.orch.AddNode(context.Background(), orchestrator.NodeSpec{Name: "n1", Host: fake.Host(), Password: "pw"})

	req := httptest.NewRequest("GET", "/nodes", nil)
	rec := httptest.NewRecorder()
	s.handleListNodes(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []nodeView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Name != "n1" {
		t.Fatalf("unexpected nodes payload: %+v", got)
	}
}

func TestForceMigrateRejectsWithoutBearerToken(t *testing.T) {
	s := newTestServer(t)
	router := s.httpServer.Handler

	req := httptest.NewRequest("POST", "/players/guild-1/migrate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}

func TestForceMigrateRejectsNonAdminRole(t *testing.T) {
	s := newTestServer(t)
	router := s.httpServer.Handler

	req := httptest.NewRequest("POST", "/players/guild-1/migrate", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "test-secret", "listener"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Fatalf("expected 401 for a non-admin role, got %d", rec.Code)
	}
}

func TestSnapshotRoutesReturn503WithoutAStore(t *testing.T) {
	s := newTestServer(t)
	router := s.httpServer.Handler
	token := adminToken(t, "test-secret", "admin")

	req := httptest.NewRequest("POST", "/snapshot/save", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("expected 503 with no snapshot store configured, got %d", rec.Code)
	}
}
