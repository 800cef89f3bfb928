package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/http/middleware"
	"github.com/tbourn/telegram-warehouse/internal/ingest"
	"github.com/tbourn/telegram-warehouse/internal/lake"
	"github.com/tbourn/telegram-warehouse/internal/repo"
	"github.com/tbourn/telegram-warehouse/internal/services"
)

// testNow is the fixed "today" of handler tests.
var testNow = time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	lk       *lake.Store
	channels *services.ChannelService
	loads    *services.LoadService
	r        *gin.Engine
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestEnv wires real services over an in-memory database and a temp lake.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := clock
	clock = func() time.Time { return testNow }
	t.Cleanup(func() { clock = prev })

	db := newTestDB(t)
	lk := lake.New(t.TempDir(), lake.WithLogger(zerolog.Nop()))
	if err := lk.EnsureStructure(); err != nil {
		t.Fatal(err)
	}

	channels := services.NewChannelService(db)
	channels.Now = func() time.Time { return testNow }
	ld := ingest.NewLoader(repo.NewMessageStore(db), ingest.WithLogger(zerolog.Nop()))
	loads := services.NewLoadService(db, ld, lk)
	loads.Log = zerolog.Nop()
	loads.Now = func() time.Time { return testNow }

	h := New(channels, services.NewReportService(db), services.NewSearchService(db), loads, lk)
	lookup := func(ctx context.Context, key string, _ time.Time) (bool, error) {
		_, err := repo.GetLoadRunByKey(ctx, db, key, testNow)
		return err == nil, nil
	}
	return &testEnv{db: db, lk: lk, channels: channels, loads: loads, r: newTestRouter(h, lookup)}
}

func newTestRouter(h *Handlers, lookup middleware.IdempotencyLookup) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))
	r.GET("/stats/messages", h.MessageStats)
	r.GET("/channels", h.ListChannels)
	r.GET("/channels/:name/activity", h.ChannelActivity)
	r.GET("/search/messages", h.SearchMessages)
	r.GET("/reports/top-products", h.TopProducts)
	r.GET("/reports/keywords", h.Keywords)
	r.GET("/reports/visual-content", h.VisualContent)
	r.GET("/lake/partitions", h.ListPartitions)
	r.POST("/loads", h.PostLoad)
	r.GET("/loads", h.ListLoads)
	r.GET("/loads/:id", h.GetLoad)
	return r
}

func (e *testEnv) seed(t *testing.T, msgs ...domain.Message) {
	t.Helper()
	if _, err := repo.InsertMessages(context.Background(), e.db, msgs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func message(id int64, channel, text string, views int64, at time.Time) domain.Message {
	return domain.Message{
		MessageID:   id,
		ChannelName: channel,
		MessageText: text,
		Views:       views,
		MessageDate: at,
		ScrapedAt:   at,
	}
}

func do(t *testing.T, r http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v; body=%s", v, err, w.Body.String())
	}
	return v
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d; body=%s", w.Code, status, w.Body.String())
	}
	if er := decode[ErrorResponse](t, w); er.Code != code || er.RequestID == "" {
		t.Fatalf("error body = %+v; want code %q", er, code)
	}
}
