package throttle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRoundTripper_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		rps    int
		burst  int
		expErr error
	}{
		{name: "zero rps", rps: 0, burst: 10, expErr: ErrMustNotBeZero},
		{name: "negative rps", rps: -5, burst: 10, expErr: ErrMustNotBeZero},
		{name: "zero burst", rps: 10, burst: 0, expErr: ErrMustNotBeZero},
		{name: "negative burst", rps: 10, burst: -5, expErr: ErrMustNotBeZero},
		{name: "valid", rps: 10, burst: 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rt, err := NewRoundTripper(tc.rps, tc.burst, nil, nil)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if rt == nil {
				t.Error("exp non-nil RoundTripper")
			}
		})
	}
}

func TestRoundTripper(t *testing.T) {
	testCases := []struct {
		name        string
		rps         int
		burst       int
		requests    int
		reqTimeout  time.Duration
		preCancel   bool
		expErrs     int
		expErr      error
		minDuration time.Duration
		maxDuration time.Duration
	}{
		{
			name:        "within burst",
			rps:         5,
			burst:       5,
			requests:    5,
			maxDuration: 150 * time.Millisecond,
		},
		{
			name:        "exceed burst then wait",
			rps:         10,
			burst:       2,
			requests:    4,
			minDuration: 150 * time.Millisecond, // (4-2)/10s minus scheduling slack
		},
		{
			name:       "deadline shorter than wait",
			rps:        1,
			burst:      1,
			requests:   2,
			reqTimeout: 50 * time.Millisecond,
			expErrs:    1,
			expErr:     ErrWaitingFailed,
		},
		{
			name:      "pre-cancelled context",
			rps:       10,
			burst:     10,
			requests:  1,
			preCancel: true,
			expErrs:   1,
			expErr:    ErrContextEnded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			rt, err := NewRoundTripper(tc.rps, tc.burst, nil, http.DefaultTransport)
			if err != nil {
				t.Fatal(err)
			}
			client := &http.Client{Transport: rt}

			var failed int
			start := time.Now()
			for i := range tc.requests {
				var ctx context.Context
				var cancel context.CancelFunc
				if tc.reqTimeout > 0 {
					ctx, cancel = context.WithTimeout(t.Context(), tc.reqTimeout)
				} else {
					ctx, cancel = context.WithCancel(t.Context())
				}
				if tc.preCancel {
					cancel()
				}

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
				if err != nil {
					cancel()
					t.Fatalf("request %d: %v", i, err)
				}

				resp, err := client.Do(req)
				cancel()
				if err != nil {
					failed++
					if tc.expErr != nil && !errors.Is(err, tc.expErr) {
						t.Errorf("request %d: exp err %v, got: %v", i, tc.expErr, err)
					}
					continue
				}
				resp.Body.Close()
			}
			elapsed := time.Since(start)

			if failed != tc.expErrs {
				t.Errorf("exp %d failed requests, got %d", tc.expErrs, failed)
			}
			if got, exp := int(hits.Load()), tc.requests-tc.expErrs; got != exp {
				t.Errorf("exp %d server hits, got %d", exp, got)
			}
			if tc.minDuration > 0 && elapsed < tc.minDuration {
				t.Errorf("exp throttled run >= %v, took %v", tc.minDuration, elapsed)
			}
			if tc.maxDuration > 0 && elapsed > tc.maxDuration {
				t.Errorf("exp fast run <= %v, took %v", tc.maxDuration, elapsed)
			}
		})
	}
}

func TestRoundTripper_LogsExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rt, err := NewRoundTripper(20, 1, func() *slog.Logger { return logger }, http.DefaultTransport)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Transport: rt}

	for range 2 {
		req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
	}

	logs := buf.String()
	if strings.Count(logs, "throttle tokens exhausted") != 1 {
		t.Errorf("exp one exhaustion log, got:\n%s", logs)
	}
	if !strings.Contains(logs, "throttle wait complete") {
		t.Errorf("exp wait completion log, got:\n%s", logs)
	}
}
