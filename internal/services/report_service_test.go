package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/vision"
)

func TestReportService_TopProducts(t *testing.T) {
	db := newTestDB(t)
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	seed(t, db,
		message(1, "CheMed123", "Paracetamol 500mg", 100, at),
		message(2, "tikvahpharma", "paracetamol and vitamin C", 300, at),
		message(3, "tikvahpharma", "Vitamin D", 50, at),
		message(4, "tikvahpharma", "paracetamol syrup", 20, at),
	)
	svc := NewReportService(db)

	got, err := svc.TopProducts(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("products = %+v", got)
	}
	if got[0].ProductName != "paracetamol" || got[0].MentionCount != 3 || got[0].AvgViews != 140 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].ProductName != "vitamin" || got[1].MentionCount != 2 {
		t.Fatalf("second = %+v", got[1])
	}

	kws, err := svc.Keywords(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(kws) != 3 || kws[0].Keyword != "paracetamol" || kws[0].Count != 3 {
		t.Fatalf("keywords = %+v", kws)
	}
}

func TestReportService_EmptyStore(t *testing.T) {
	svc := NewReportService(newTestDB(t))
	got, err := svc.TopProducts(context.Background(), 10)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %v, err %v; want empty list", got, err)
	}
	st, err := svc.MessageStats(context.Background())
	if err != nil || st.TotalMessages != 0 {
		t.Fatalf("stats = %+v, err %v", st, err)
	}
}

func TestReportService_VisualContent(t *testing.T) {
	db := newTestDB(t)
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	seed(t, db, message(1, "chA", "", 100, at))
	results := []domain.ImageDetections{{
		ImageRef:   domain.ImageRef{Path: "chA/1.jpg", ChannelName: "chA", MessageID: 1},
		Detections: []domain.Detection{{Class: "person", Confidence: 0.9}},
	}}
	ds := NewDetectionService(db)
	if _, err := ds.Process(context.Background(), results, true); err != nil {
		t.Fatal(err)
	}

	got, err := NewReportService(db).VisualContent(context.Background(), " chA ")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalImages != 1 || len(got.Categories) != 1 || got.Categories[0].Category != vision.Classify(results[0].Detections) {
		t.Fatalf("visual = %+v", got)
	}
}
