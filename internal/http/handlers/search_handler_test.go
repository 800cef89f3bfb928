package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestSearchMessages(t *testing.T) {
	e := newTestEnv(t)
	at := testNow.Add(-time.Hour)
	img := "raw/images/chA/2.jpg"
	m2 := message(2, "chA", "Paracetamol 500mg tablet in stock", 20, at)
	m2.ImagePath = &img
	e.seed(t,
		message(1, "chA", "paracetamol", 10, at),
		m2,
		message(3, "chB", "PARACETAMOL syrup and tablet", 30, at),
		message(4, "chB", "vitamin C", 40, at),
	)

	res := decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=paracetamol+tablet", "", nil))
	if res.Pagination.Total != 2 || len(res.Messages) != 2 {
		t.Fatalf("result = %+v", res)
	}

	res = decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=paracetamol&page_size=2", "", nil))
	if res.Pagination.Total != 3 || res.Pagination.TotalPages != 2 || !res.Pagination.HasNext || len(res.Messages) != 2 {
		t.Fatalf("page 1 = %+v", res.Pagination)
	}
	res = decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=paracetamol&page_size=2&page=2", "", nil))
	if len(res.Messages) != 1 || res.Pagination.HasNext {
		t.Fatalf("page 2 = %+v", res)
	}

	// Huge pages are capped instead of wrapping around to the first page.
	res = decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=paracetamol&page_size=2&page=9223372036854775807", "", nil))
	if len(res.Messages) != 0 || res.Pagination.Page != 100_000 || res.Pagination.HasNext {
		t.Fatalf("huge page = %+v", res)
	}

	res = decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=paracetamol&channel=chB", "", nil))
	if len(res.Messages) != 1 || res.Messages[0].MessageID != 3 {
		t.Fatalf("channel filter = %+v", res.Messages)
	}

	res = decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=paracetamol&has_image=true", "", nil))
	if len(res.Messages) != 1 || res.Messages[0].MessageID != 2 {
		t.Fatalf("has_image filter = %+v", res.Messages)
	}

	res = decode[SearchMessagesResponse](t, do(t, e.r, http.MethodGet, "/search/messages?query=aspirin", "", nil))
	if res.Messages == nil || len(res.Messages) != 0 || res.Pagination.Total != 0 {
		t.Fatalf("no match = %+v", res)
	}
}

func TestSearchMessages_BadRequests(t *testing.T) {
	e := newTestEnv(t)
	cases := map[string]string{
		"missing query": "/search/messages",
		"blank query":   "/search/messages?query=%20%20",
		"too long":      "/search/messages?query=" + strings.Repeat("a", 201),
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			wantError(t, do(t, e.r, http.MethodGet, target, "", nil), http.StatusBadRequest, ErrCodeInvalidQuery)
		})
	}
	wantError(t, do(t, e.r, http.MethodGet, "/search/messages?query=x&has_image=maybe", "", nil), http.StatusBadRequest, ErrCodeBadRequest)

	b := brokenServices{errors.New("db down")}
	r := newTestRouter(New(b, b, b, b, b), nil)
	wantError(t, do(t, r, http.MethodGet, "/search/messages?query=x", "", nil), http.StatusInternalServerError, ErrCodeQueryFailed)
}
