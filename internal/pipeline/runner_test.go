package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

// noSleep records requested delays without waiting.
func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func failTimes(n int, calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		if *calls <= n {
			return errors.New("transient")
		}
		return nil
	}
}

func TestRunner_RetriesThenSucceeds(t *testing.T) {
	var loadCalls, detectCalls int
	var delays []time.Duration
	var buf bytes.Buffer

	r := NewRunner([]Stage{
		{Name: "load", Retry: RetryPolicy{MaxRetries: 2, Delay: 30 * time.Second}, Run: failTimes(2, &loadCalls)},
		{Name: "detections", Retry: RetryPolicy{MaxRetries: 2, Delay: time.Minute}, Run: failTimes(0, &detectCalls)},
	}, WithLogger(zerolog.New(&buf)))
	r.sleep = noSleep(&delays)

	before := testutil.ToFloat64(runsTotal.WithLabelValues("succeeded"))
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loadCalls != 3 || detectCalls != 1 {
		t.Fatalf("calls load=%d detections=%d", loadCalls, detectCalls)
	}
	if len(rep.Stages) != 2 || rep.Stages[0].Attempts != 3 || rep.Stages[1].Attempts != 1 || rep.Stages[0].Error != "" {
		t.Fatalf("report = %+v", rep)
	}
	if len(delays) != 2 || delays[0] != 30*time.Second {
		t.Fatalf("delays = %v", delays)
	}
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("succeeded")); got != before+1 {
		t.Fatalf("succeeded runs = %v; want %v", got, before+1)
	}
	if !strings.Contains(buf.String(), "retrying stage") {
		t.Fatalf("retry not logged: %s", buf.String())
	}
}

func TestRunner_FailedStageStopsRun(t *testing.T) {
	var loadCalls, detectCalls int
	var delays []time.Duration
	r := NewRunner([]Stage{
		{Name: "load", Retry: RetryPolicy{MaxRetries: 1}, Run: failTimes(5, &loadCalls)},
		{Name: "detections", Run: failTimes(0, &detectCalls)},
	}, WithLogger(zerolog.Nop()))
	r.sleep = noSleep(&delays)

	rep, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "stage load") {
		t.Fatalf("err = %v", err)
	}
	if loadCalls != 2 || detectCalls != 0 {
		t.Fatalf("calls load=%d detections=%d", loadCalls, detectCalls)
	}
	if len(rep.Stages) != 1 || rep.Stages[0].Error != "transient" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunner_TimeoutPerAttempt(t *testing.T) {
	var attempts int
	r := NewRunner([]Stage{{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Retry:   RetryPolicy{MaxRetries: 1},
		Run: func(ctx context.Context) error {
			attempts++
			<-ctx.Done()
			return ctx.Err()
		},
	}}, WithLogger(zerolog.Nop()))
	var delays []time.Duration
	r.sleep = noSleep(&delays)

	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), context.DeadlineExceeded.Error()) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d; each attempt gets a fresh deadline", attempts)
	}
}

func TestRunner_CancelledParentStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	r := NewRunner([]Stage{{
		Name:  "load",
		Retry: RetryPolicy{MaxRetries: 5, Delay: time.Hour},
		Run: func(context.Context) error {
			attempts++
			cancel()
			return errors.New("boom")
		},
	}}, WithLogger(zerolog.Nop()))

	start := time.Now()
	if _, err := r.Run(ctx); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 || time.Since(start) > time.Second {
		t.Fatalf("attempts=%d elapsed=%v", attempts, time.Since(start))
	}
}

func TestRunner_PanicFailsAttempt(t *testing.T) {
	r := NewRunner([]Stage{{Name: "bad", Run: func(context.Context) error { panic("nil map") }}}, WithLogger(zerolog.Nop()))
	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic: nil map") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunner_NoOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRunner([]Stage{{Name: "block", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}}, WithLogger(zerolog.Nop()))

	done := make(chan error, 1)
	go func() { _, err := r.Run(context.Background()); done <- err }()
	<-started

	if _, err := r.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second run err = %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestSchedule_RunsAndStops(t *testing.T) {
	var runs atomic.Int32
	r := NewRunner([]Stage{{Name: "tick", Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}}, WithLogger(zerolog.Nop()))

	s, err := Schedule(context.Background(), "@every 1s", r, zerolog.Nop())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if s.Next().IsZero() {
		t.Fatal("next activation not set")
	}

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	<-s.Stop().Done()
	if runs.Load() == 0 {
		t.Fatal("runner never triggered")
	}
}

func TestSchedule_BadSpec(t *testing.T) {
	r := NewRunner(nil, WithLogger(zerolog.Nop()))
	if _, err := Schedule(context.Background(), "every now and then", r, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
