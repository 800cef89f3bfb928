package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/services"
)

// brokenServices fails every call with err.
type brokenServices struct{ err error }

func (b brokenServices) Summaries(context.Context) ([]domain.ChannelSummary, error) {
	return nil, b.err
}
func (b brokenServices) Version(context.Context, string) (int64, time.Time, error) {
	return 0, time.Time{}, b.err
}
func (b brokenServices) Activity(context.Context, string, int) (*services.ChannelActivity, error) {
	return nil, b.err
}
func (b brokenServices) MessageStats(context.Context) (domain.TableStats, error) {
	return domain.TableStats{}, b.err
}
func (b brokenServices) TopProducts(context.Context, int) ([]domain.ProductMention, error) {
	return nil, b.err
}
func (b brokenServices) Keywords(context.Context, int) ([]services.KeywordCount, error) {
	return nil, b.err
}
func (b brokenServices) VisualContent(context.Context, string) (domain.VisualContentStats, error) {
	return domain.VisualContentStats{}, b.err
}
func (b brokenServices) Search(context.Context, services.SearchQuery) (*services.SearchResult, error) {
	return nil, b.err
}
func (b brokenServices) Run(context.Context, services.LoadRequest) (*domain.LoadRun, bool, error) {
	return nil, false, b.err
}
func (b brokenServices) Get(context.Context, string) (*domain.LoadRun, error) { return nil, b.err }
func (b brokenServices) List(context.Context, int) ([]domain.LoadRun, error) { return nil, b.err }
func (b brokenServices) ListPartitionDates() ([]string, error)              { return nil, b.err }
func (b brokenServices) ReadManifest(string) (*domain.Manifest, error)      { return nil, b.err }

func TestMessageStats(t *testing.T) {
	e := newTestEnv(t)

	w := do(t, e.r, http.MethodGet, "/stats/messages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if st := decode[domain.TableStats](t, w); st.TotalMessages != 0 || st.EarliestMessage != nil {
		t.Fatalf("empty stats = %+v", st)
	}

	m := message(1, "chA", "hello", 10, testNow.Add(-time.Hour))
	m.HasMedia = true
	e.seed(t, m, message(2, "chB", "hi", 5, testNow.Add(-2*time.Hour)))

	st := decode[domain.TableStats](t, do(t, e.r, http.MethodGet, "/stats/messages", "", nil))
	if st.TotalMessages != 2 || st.UniqueChannels != 2 || st.MessagesWithMedia != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestListChannels(t *testing.T) {
	e := newTestEnv(t)

	got := decode[ListChannelsResponse](t, do(t, e.r, http.MethodGet, "/channels", "", nil))
	if got.Channels == nil || len(got.Channels) != 0 {
		t.Fatalf("empty channels = %#v; want []", got.Channels)
	}

	day := testNow.Add(-24 * time.Hour)
	e.seed(t,
		message(1, "chA", "", 100, day),
		message(2, "chA", "", 300, day),
		message(3, "chB", "", 7, day),
	)
	got = decode[ListChannelsResponse](t, do(t, e.r, http.MethodGet, "/channels", "", nil))
	if len(got.Channels) != 2 || got.Channels[0].ChannelName != "chA" || got.Channels[0].AvgViews != 200 {
		t.Fatalf("channels = %+v", got.Channels)
	}
}

func TestChannelActivity(t *testing.T) {
	e := newTestEnv(t)
	e.seed(t,
		message(1, "chA", "", 100, testNow.Add(-24*time.Hour)),
		message(2, "chA", "", 50, testNow.Add(-time.Hour)),
	)

	w := do(t, e.r, http.MethodGet, "/channels/chA/activity?days=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	act := decode[services.ChannelActivity](t, w)
	if act.ChannelName != "chA" || act.TotalMessages != 2 || len(act.DailyActivity) != 3 {
		t.Fatalf("activity = %+v", act)
	}
	if act.DateRange.Start != "2024-01-14" || act.DateRange.End != "2024-01-16" {
		t.Fatalf("range = %+v", act.DateRange)
	}

	// Unchanged data: 304.
	w = do(t, e.r, http.MethodGet, "/channels/chA/activity?days=2", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d", w.Code)
	}

	// A different window is a different representation.
	w = do(t, e.r, http.MethodGet, "/channels/chA/activity?days=3", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("other window status = %d", w.Code)
	}

	// New data changes the ETag.
	e.seed(t, message(3, "chA", "", 1, testNow.Add(-time.Minute)))
	w = do(t, e.r, http.MethodGet, "/channels/chA/activity?days=2", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("after insert: status=%d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestChannelActivity_Errors(t *testing.T) {
	e := newTestEnv(t)

	wantError(t, do(t, e.r, http.MethodGet, "/channels/nobody/activity", "", nil), http.StatusNotFound, ErrCodeChannelNotFound)
	for _, q := range []string{"abc", "0", "-3"} {
		wantError(t, do(t, e.r, http.MethodGet, "/channels/chA/activity?days="+q, "", nil), http.StatusBadRequest, ErrCodeBadRequest)
	}

	broken := newTestRouter(New(brokenServices{errors.New("db down")}, nil, nil, nil, nil), nil)
	wantError(t, do(t, broken, http.MethodGet, "/channels/chA/activity", "", nil), http.StatusInternalServerError, ErrCodeQueryFailed)
	wantError(t, do(t, broken, http.MethodGet, "/channels", "", nil), http.StatusInternalServerError, ErrCodeQueryFailed)
}

func TestMessageStats_Error(t *testing.T) {
	b := brokenServices{errors.New("db down")}
	r := newTestRouter(New(b, b, b, b, b), nil)
	wantError(t, do(t, r, http.MethodGet, "/stats/messages", "", nil), http.StatusInternalServerError, ErrCodeQueryFailed)
}
