package grinder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"vanity-sol/internal/keys"
)

// fakeSource hands out addresses built by next, counting every call.
type fakeSource struct {
	calls atomic.Uint64
	next  func(n uint64) (keys.Keypair, error)
}

func (f *fakeSource) Chain() string { return "fake" }

func (f *fakeSource) Generate() (keys.Keypair, error) {
	return f.next(f.calls.Add(1))
}

func (f *fakeSource) Trim(address string) string { return address }

func (f *fakeSource) Validate(string, bool) error { return nil }

func (f *fakeSource) Difficulty(string, string, bool) *big.Int { return nil }

func addressSource(format string) *fakeSource {
	return &fakeSource{next: func(n uint64) (keys.Keypair, error) {
		return keys.Keypair{Address: fmt.Sprintf(format, n)}, nil
	}}
}

func newSearch(t *testing.T, cfg Config, src keys.Source) *Search {
	t.Helper()
	s, err := New(cfg, src, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("new search: %v", err)
	}
	return s
}

func runWithin(t *testing.T, s *Search, ctx context.Context, limit time.Duration) (Result, error) {
	t.Helper()
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := s.Run(ctx)
		ch <- outcome{res, err}
	}()
	select {
	case o := <-ch:
		return o.res, o.err
	case <-time.After(limit):
		t.Fatalf("search did not finish within %v", limit)
		return Result{}, nil
	}
}

func TestRun_EmptyPrefixMatchesFirstCandidate(t *testing.T) {
	const workers = 4
	s := newSearch(t, Config{Workers: workers}, keys.Solana{})

	res, err := runWithin(t, s, context.Background(), 10*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Match == nil || res.Match.Keypair.Address == "" {
		t.Fatalf("expected a match, got %+v", res)
	}
	if res.Attempts == 0 || res.Attempts > workers {
		t.Fatalf("every candidate matches, expected 1..%d attempts, got %d", workers, res.Attempts)
	}
	if res.Match.Attempt == 0 || res.Match.Attempt > res.Attempts {
		t.Fatalf("winning attempt %d outside 1..%d", res.Match.Attempt, res.Attempts)
	}
}

func TestRun_SingleCharacterPrefix(t *testing.T) {
	s := newSearch(t, Config{
		Prefix:      "a",
		Workers:     4,
		MaxAttempts: 1_000_000,
	}, keys.Solana{})

	res, err := runWithin(t, s, context.Background(), 30*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.ToLower(res.Match.Keypair.Address); !strings.HasPrefix(got, "a") {
		t.Fatalf("address %q does not start with prefix", res.Match.Keypair.Address)
	}
	if res.Attempts == 0 {
		t.Fatalf("expected positive attempt count")
	}
}

func TestRun_CaseInsensitivePrefix(t *testing.T) {
	src := addressSource("AnZaXyz%d")
	s := newSearch(t, Config{Prefix: "anza", Workers: 2}, src)

	res, err := runWithin(t, s, context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(res.Match.Keypair.Address, "AnZaXyz") {
		t.Fatalf("unexpected match %q", res.Match.Keypair.Address)
	}
}

func TestRun_AttemptsCounterUnderContention(t *testing.T) {
	const budget = 200_000
	src := addressSource("zzz%d")
	s := newSearch(t, Config{
		Prefix:      "1",
		Workers:     64,
		MaxAttempts: budget,
	}, src)

	res, err := runWithin(t, s, context.Background(), 30*time.Second)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if res.Match != nil {
		t.Fatalf("expected no match, got %+v", res.Match)
	}
	if res.Attempts != budget {
		t.Fatalf("attempts = %d, want %d", res.Attempts, budget)
	}
	if calls := src.calls.Load(); calls != res.Attempts {
		t.Fatalf("attempts = %d but source generated %d keypairs", res.Attempts, calls)
	}
}

func TestRun_SingleWinnerOnSimultaneousMatch(t *testing.T) {
	const workers = 16

	// Every worker's first candidate matches and all of them are released
	// together, so they race for the found flag in the same window.
	var arrived sync.WaitGroup
	arrived.Add(workers)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	src := &fakeSource{}
	src.next = func(n uint64) (keys.Keypair, error) {
		if n <= workers {
			arrived.Done()
			<-release
		}
		return keys.Keypair{Address: fmt.Sprintf("match-%d", n)}, nil
	}

	s := newSearch(t, Config{Prefix: "match", Workers: workers}, src)
	res, err := runWithin(t, s, context.Background(), 10*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Match == nil {
		t.Fatalf("expected a match")
	}
	if got := src.calls.Load(); got != workers {
		t.Fatalf("expected %d contending candidates, got %d", workers, got)
	}
	if res.Attempts != workers {
		t.Fatalf("attempts = %d, want %d", res.Attempts, workers)
	}
	if !s.Found() {
		t.Fatalf("found flag not set")
	}
	if s.winner != res.Match {
		t.Fatalf("recorded winner changed after Run returned")
	}
}

func TestRun_WorkersStopAfterFound(t *testing.T) {
	src := &fakeSource{}
	src.next = func(n uint64) (keys.Keypair, error) {
		if n == 500 {
			return keys.Keypair{Address: "hit"}, nil
		}
		return keys.Keypair{Address: "miss"}, nil
	}

	s := newSearch(t, Config{Prefix: "hit", Workers: 8}, src)
	res, err := runWithin(t, s, context.Background(), 10*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Match.Keypair.Address != "hit" {
		t.Fatalf("unexpected match %+v", res.Match)
	}

	// Run joins every worker, so nothing may generate afterwards.
	before := src.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if after := src.calls.Load(); after != before {
		t.Fatalf("workers still running after Run returned: %d -> %d calls", before, after)
	}
	if res.Attempts != before {
		t.Fatalf("attempts = %d but source generated %d keypairs", res.Attempts, before)
	}
}

func TestRun_WorkerFailureIsFatal(t *testing.T) {
	errBoom := errors.New("entropy exhausted")
	src := &fakeSource{}
	src.next = func(n uint64) (keys.Keypair, error) {
		if n == 50 {
			return keys.Keypair{}, errBoom
		}
		return keys.Keypair{Address: "miss"}, nil
	}

	s := newSearch(t, Config{Prefix: "hit", Workers: 8}, src)
	res, err := runWithin(t, s, context.Background(), 10*time.Second)
	if !errors.Is(err, ErrWorkerFailed) {
		t.Fatalf("expected ErrWorkerFailed, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected cause to be kept, got %v", err)
	}
	if res.Match != nil {
		t.Fatalf("expected no match, got %+v", res.Match)
	}
}

func TestRun_MatchWinsOverLaterFailure(t *testing.T) {
	errBoom := errors.New("entropy exhausted")
	src := &fakeSource{}
	var s *Search
	src.next = func(n uint64) (keys.Keypair, error) {
		if n == 1 {
			return keys.Keypair{Address: "hit"}, nil
		}
		// Fail only once the first candidate has been recorded.
		deadline := time.Now().Add(5 * time.Second)
		for !s.Found() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		return keys.Keypair{}, errBoom
	}

	s = newSearch(t, Config{Prefix: "hit", Workers: 2}, src)
	res, err := runWithin(t, s, context.Background(), 10*time.Second)
	if err != nil {
		t.Fatalf("expected the match to be reported, got %v", err)
	}
	if res.Match == nil || res.Match.Attempt != 1 {
		t.Fatalf("expected match on attempt 1, got %+v", res.Match)
	}
}

func TestRun_WorkerPanicIsFatal(t *testing.T) {
	src := &fakeSource{}
	src.next = func(n uint64) (keys.Keypair, error) {
		if n == 10 {
			panic("bad curve point")
		}
		return keys.Keypair{Address: "miss"}, nil
	}

	s := newSearch(t, Config{Prefix: "hit", Workers: 4}, src)
	_, err := runWithin(t, s, context.Background(), 10*time.Second)
	if !errors.Is(err, ErrWorkerFailed) {
		t.Fatalf("expected ErrWorkerFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad curve point") {
		t.Fatalf("expected panic value in error, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	src := addressSource("miss%d")
	s := newSearch(t, Config{Prefix: "hit", Workers: 4}, src)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res, err := runWithin(t, s, ctx, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Attempts == 0 {
		t.Fatalf("expected some attempts before cancellation")
	}
}

func TestRun_Timeout(t *testing.T) {
	src := addressSource("miss%d")
	s := newSearch(t, Config{Prefix: "hit", Workers: 4, Timeout: 20 * time.Millisecond}, src)

	res, err := runWithin(t, s, context.Background(), 10*time.Second)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if res.Match != nil {
		t.Fatalf("expected no match")
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	s := newSearch(t, Config{Workers: 1}, addressSource("x%d"))
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Fatalf("expected ErrAlreadyRun, got %v", err)
	}
}

func TestRun_ProgressCadence(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []uint64
	)
	s := newSearch(t, Config{
		Prefix:        "hit",
		Workers:       4,
		MaxAttempts:   100,
		ProgressEvery: 10,
		OnProgress: func(p Progress) {
			mu.Lock()
			seen = append(seen, p.Attempts)
			mu.Unlock()
		},
	}, addressSource("miss%d"))

	if _, err := runWithin(t, s, context.Background(), 10*time.Second); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Fatalf("expected 10 progress observations, got %d: %v", len(seen), seen)
	}
	for _, n := range seen {
		if n%10 != 0 {
			t.Fatalf("progress reported at attempt %d, not a multiple of 10", n)
		}
	}
}

func TestRun_IndependentRunsDiffer(t *testing.T) {
	var addrs []string
	for i := 0; i < 2; i++ {
		s := newSearch(t, Config{Workers: 2}, keys.Solana{})
		res, err := runWithin(t, s, context.Background(), 10*time.Second)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		addrs = append(addrs, res.Match.Keypair.Address)
	}
	if addrs[0] == addrs[1] {
		t.Fatalf("two searches produced the same keypair %s", addrs[0])
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no workers", Config{Prefix: "a", Workers: 0}},
		{"too many workers", Config{Prefix: "a", Workers: 5000}},
		{"negative timeout", Config{Prefix: "a", Workers: 1, Timeout: -time.Second}},
		{"non base58 prefix", Config{Prefix: "0x", Workers: 1}},
		{"non base58 suffix", Config{Suffix: "O", Workers: 1, CaseSensitive: true}},
	}
	for _, tt := range tests {
		if _, err := New(tt.cfg, keys.Solana{}, nil); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}

	if _, err := New(Config{Workers: 1}, nil, nil); err == nil {
		t.Fatalf("expected error for missing source")
	}
}
