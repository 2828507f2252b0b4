package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	httpserver "super_clicker/internal/http"
	"super_clicker/internal/http/handlers"
	"super_clicker/internal/moderation"
	"super_clicker/internal/repository"
	"super_clicker/internal/service"
	"super_clicker/internal/store"
	"super_clicker/internal/ws"

	"github.com/gin-gonic/gin"
)

// A ban issued over the admin API reaches the player's status stream.
func TestE2E_BanPushedOverWS(t *testing.T) {
	db := connect(t)
	ctx := context.Background()

	adminID := int64(1)
	players := repository.NewPlayerRepository(db)
	audit := service.NewAuditService(repository.NewAuditRepository(db))
	engine := moderation.NewEngine(moderation.DefaultConfig())
	hub := ws.NewHub()
	locks := store.NewLocks()

	h := handlers.NewHandler(
		handlers.HandlerConfig{BotToken: "dummy-bot-token", DevMode: true, IsAdmin: func(id int64) bool { return id == adminID }},
		service.NewPlayerService(players, locks, engine, moderation.NewDetector(moderation.DefaultThresholds()), audit, hub),
		service.NewModerationService(players, locks, engine, audit, hub),
		service.NewAdminService(players, audit, service.CleanupPolicy{InactiveAfter: 720 * time.Hour, MaxLevel: 5}),
		audit,
	)

	service.InitJWT("test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpserver.RegisterRoutes(r, h, handlers.NewHealthHandler("test", map[string]handlers.Check{"database": db.Ping}), hub, httpserver.Limits{
		API: 1000, APIWindow: time.Minute,
		Auth: 1000, AuthWindow: time.Minute,
		Save: 1000, SaveWindow: time.Minute,
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	// dev-mode auth creates the record
	playerID := testID(3)
	body, _ := json.Marshal(handlers.AuthRequest{InitData: `user={"id":` + strconv.FormatInt(playerID, 10) + `,"username":"e2e"}`})
	res, err := http.Post(ts.URL+"/api/v1/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	var auth struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(res.Body).Decode(&auth)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || auth.Token == "" {
		t.Fatalf("auth failed: status %d", res.StatusCode)
	}

	sub, err := ws.Subscribe(ctx, ts.URL, auth.Token)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	adminToken, err := service.GenerateJWT(adminID, true)
	if err != nil {
		t.Fatalf("admin token: %v", err)
	}
	ban, _ := json.Marshal(service.ActionRequest{Reason: "Cheating", Duration: "1d"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/admin/users/"+strconv.FormatInt(playerID, 10)+"/ban", bytes.NewReader(ban))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("ban failed: status %d", res.StatusCode)
	}

	got := make(chan ws.StatusMessage, 1)
	go func() {
		if msg, err := sub.Next(); err == nil {
			got <- msg
		}
	}()

	select {
	case msg := <-got:
		if !msg.Status.IsBanned || msg.Status.BanReason != "Cheating" {
			t.Fatalf("unexpected status frame: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no status frame received")
	}
}
