package repo

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

func strPtr(s string) *string { return &s }

func msg(id int64, channel, text string, views int64, at time.Time) domain.Message {
	return domain.Message{
		MessageID:   id,
		ChannelName: channel,
		MessageText: text,
		Views:       views,
		MessageDate: at,
		ScrapedAt:   at,
	}
}

func TestExistingMessageIDs_AndChunking(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Message{})
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	// More rows than one lookup chunk to exercise the chunked IN queries.
	rows := make([]domain.Message, 0, lookupChunk+10)
	for i := int64(1); i <= lookupChunk+10; i++ {
		rows = append(rows, msg(i, "chA", "", 0, now))
	}
	if _, err := InsertMessages(ctx, db, rows); err != nil {
		t.Fatalf("seed: %v", err)
	}

	candidates := make([]int64, 0, lookupChunk+20)
	for i := int64(1); i <= lookupChunk+20; i++ {
		candidates = append(candidates, i)
	}
	got, err := ExistingMessageIDs(ctx, db, candidates)
	if err != nil {
		t.Fatalf("ExistingMessageIDs: %v", err)
	}
	if len(got) != lookupChunk+10 {
		t.Fatalf("found %d ids; want %d", len(got), lookupChunk+10)
	}

	got, err = ExistingMessageIDs(ctx, db, []int64{1, 2, 99999})
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("got %v; want [1 2]", got)
	}
}

func TestExistingMessageIDs_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := ExistingMessageIDs(context.Background(), db, []int64{1}); err == nil {
		t.Fatalf("expected error due to missing table")
	}
}

func TestInsertMessages_IgnoresConflicts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Message{})
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	n, err := InsertMessages(ctx, db, []domain.Message{msg(1, "chA", "first", 10, now)})
	if err != nil || n != 1 {
		t.Fatalf("first insert: n=%d err=%v", n, err)
	}
	// id 1 raced in already; the statement must not fail and must keep the original row.
	n, err = InsertMessages(ctx, db, []domain.Message{msg(1, "chA", "second", 20, now), msg(2, "chA", "new", 5, now)})
	if err != nil {
		t.Fatalf("conflicting insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows affected = %d; want 1", n)
	}
	got, err := GetMessage(ctx, db, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.MessageText != "first" {
		t.Fatalf("existing row was overwritten: %+v", got)
	}
	if n, err := InsertMessages(ctx, db, nil); err != nil || n != 0 {
		t.Fatalf("empty insert: n=%d err=%v", n, err)
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	if _, err := GetMessage(context.Background(), db, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestSearchAndCountMessages(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Message{})
	day := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	a := msg(1, "CheMed123", "New PARACETAMOL tablets", 100, day)
	a.ImagePath = strPtr("data/raw/images/CheMed123/1.jpg")
	b := msg(2, "CheMed123", "paracetamol 500mg syrup", 300, day.Add(time.Hour))
	c := msg(3, "tikvahpharma", "Paracetamol in stock", 300, day.Add(2*time.Hour))
	d := msg(4, "tikvahpharma", "100% cotton_pads", 50, day)
	if _, err := InsertMessages(ctx, db, []domain.Message{a, b, c, d}); err != nil {
		t.Fatal(err)
	}

	got, err := SearchMessages(ctx, db, MessageFilter{Query: "paracetamol"})
	if err != nil {
		t.Fatal(err)
	}
	var ids []int64
	for _, m := range got {
		ids = append(ids, m.MessageID)
	}
	// views DESC, then message_date DESC
	if !reflect.DeepEqual(ids, []int64{3, 2, 1}) {
		t.Fatalf("ids = %v; want [3 2 1]", ids)
	}

	yes, no := true, false
	cases := []struct {
		name string
		f    MessageFilter
		want int64
	}{
		{"channel", MessageFilter{Query: "paracetamol", Channel: "CheMed123"}, 2},
		{"with image", MessageFilter{Query: "paracetamol", HasImage: &yes}, 1},
		{"without image", MessageFilter{Query: "paracetamol", HasImage: &no}, 2},
		{"percent is literal", MessageFilter{Query: "100%"}, 1},
		{"underscore is literal", MessageFilter{Query: "n_p"}, 1},
		{"underscore does not wildcard", MessageFilter{Query: "s_rup"}, 0},
		{"empty query matches all", MessageFilter{}, 4},
	}
	for _, tc := range cases {
		n, err := CountMessages(ctx, db, tc.f)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if n != tc.want {
			t.Fatalf("%s: count = %d; want %d", tc.name, n, tc.want)
		}
	}

	limited, err := SearchMessages(ctx, db, MessageFilter{Query: "paracetamol", Limit: 1})
	if err != nil || len(limited) != 1 || limited[0].MessageID != 3 {
		t.Fatalf("limited = %+v, err=%v", limited, err)
	}
}

func TestKeywordMention(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Message{})
	day := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rows := []domain.Message{
		msg(1, "tikvahpharma", "Vitamin C", 100, day),
		msg(2, "CheMed123", "vitamin d drops", 300, day),
		msg(3, "CheMed123", "sunscreen", 50, day),
	}
	if _, err := InsertMessages(ctx, db, rows); err != nil {
		t.Fatal(err)
	}

	pm, err := KeywordMention(ctx, db, "vitamin")
	if err != nil {
		t.Fatal(err)
	}
	if pm.MentionCount != 2 || pm.AvgViews != 200 {
		t.Fatalf("mention = %+v", pm)
	}
	if !reflect.DeepEqual(pm.Channels, []string{"CheMed123", "tikvahpharma"}) {
		t.Fatalf("channels = %v", pm.Channels)
	}

	none, err := KeywordMention(ctx, db, "aspirin")
	if err != nil {
		t.Fatal(err)
	}
	if none.MentionCount != 0 || len(none.Channels) != 0 || none.Channels == nil {
		t.Fatalf("no-mention result = %+v", none)
	}
}
