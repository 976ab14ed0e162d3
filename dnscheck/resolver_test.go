package dnscheck

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeNet struct {
	mu     sync.Mutex
	mx     map[string][]*net.MX
	hosts  map[string][]string
	cnames map[string]string
	errs   []error // returned, in order, before any answer
	calls  []string
}

func (f *fakeNet) next(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func notFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (f *fakeNet) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if err := f.next("MX " + name); err != nil {
		return nil, err
	}
	if mx, ok := f.mx[name]; ok {
		return mx, nil
	}
	return nil, notFound(name)
}

func (f *fakeNet) LookupHost(_ context.Context, name string) ([]string, error) {
	if err := f.next("HOST " + name); err != nil {
		return nil, err
	}
	if h, ok := f.hosts[name]; ok {
		return h, nil
	}
	return nil, notFound(name)
}

func (f *fakeNet) LookupCNAME(_ context.Context, name string) (string, error) {
	if err := f.next("CNAME " + name); err != nil {
		return "", err
	}
	if c, ok := f.cnames[name]; ok {
		return c, nil
	}
	return "", notFound(name)
}

type observation struct {
	kind, outcome string
}

func newTestResolver(t *testing.T, f *fakeNet, cache Cache) (*Resolver, *[]observation) {
	t.Helper()
	var mu sync.Mutex
	seen := &[]observation{}
	r := newResolver(f, Config{
		Timeout: time.Second,
		Cache:   cache,
		Logger:  zaptest.NewLogger(t),
		Observe: func(kind, outcome string, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			*seen = append(*seen, observation{kind, outcome})
		},
	})
	r.backoff.InitialDelay = time.Millisecond
	r.backoff.Jitter = -1
	return r, seen
}

func TestLookupMX(t *testing.T) {
	f := &fakeNet{mx: map[string][]*net.MX{
		"example.com": {{Host: "mx1.example.com.", Pref: 10}, {Host: "mx2.example.com.", Pref: 20}},
	}}
	r, seen := newTestResolver(t, f, nil)

	hosts, err := r.LookupMX(context.Background(), "Example.COM")
	require.NoError(t, err)
	assert.Equal(t, []string{"mx1.example.com.", "mx2.example.com."}, hosts)
	assert.Equal(t, []string{"MX example.com"}, f.calls)
	assert.Equal(t, []observation{{KindMX, OutcomeFound}}, *seen)
}

func TestLookupNotFoundIsEmptyAnswer(t *testing.T) {
	f := &fakeNet{}
	r, seen := newTestResolver(t, f, nil)

	hosts, err := r.LookupMX(context.Background(), "nowhere.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)
	assert.NotNil(t, hosts)
	assert.Equal(t, []observation{{KindMX, OutcomeEmpty}}, *seen)
}

func TestLookupCachesAnswers(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()

	f := &fakeNet{mx: map[string][]*net.MX{"example.com": {{Host: "mx.example.com."}}}}
	r, seen := newTestResolver(t, f, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		hosts, err := r.LookupMX(ctx, "example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"mx.example.com."}, hosts)
	}
	// negative answers are cached too
	for i := 0; i < 2; i++ {
		hosts, err := r.LookupMX(ctx, "missing.example")
		require.NoError(t, err)
		assert.Empty(t, hosts)
	}

	assert.Equal(t, []string{"MX example.com", "MX missing.example"}, f.calls)
	assert.Equal(t, []observation{
		{KindMX, OutcomeFound}, {KindMX, OutcomeCached}, {KindMX, OutcomeCached},
		{KindMX, OutcomeEmpty}, {KindMX, OutcomeCached},
	}, *seen)
	assert.Equal(t, 2, cache.Len())
}

func TestLookupRetriesTemporaryFailures(t *testing.T) {
	f := &fakeNet{
		mx: map[string][]*net.MX{"example.com": {{Host: "mx.example.com."}}},
		errs: []error{
			&net.DNSError{Err: "i/o timeout", Name: "example.com", IsTimeout: true},
			&net.DNSError{Err: "server misbehaving", Name: "example.com", IsTemporary: true},
		},
	}
	r, _ := newTestResolver(t, f, nil)

	hosts, err := r.LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"mx.example.com."}, hosts)
	assert.Len(t, f.calls, 3)
}

func TestLookupGivesUpAfterAttempts(t *testing.T) {
	timeout := &net.DNSError{Err: "i/o timeout", Name: "example.com", IsTimeout: true}
	f := &fakeNet{errs: []error{timeout, timeout, timeout, timeout}}
	cache := NewMemoryCache(0)
	defer cache.Close()
	r, seen := newTestResolver(t, f, cache)

	_, err := r.LookupMX(context.Background(), "example.com")
	require.Error(t, err)

	var dnsErr *net.DNSError
	assert.True(t, errors.As(err, &dnsErr))
	assert.Len(t, f.calls, 3)
	assert.Equal(t, []observation{{KindMX, OutcomeError}}, *seen)
	assert.Equal(t, 0, cache.Len(), "failures are not cached")
}

func TestLookupDoesNotRetryPermanentErrors(t *testing.T) {
	f := &fakeNet{errs: []error{errors.New("refused")}}
	r, _ := newTestResolver(t, f, nil)

	_, err := r.LookupMX(context.Background(), "example.com")
	require.Error(t, err)
	assert.Len(t, f.calls, 1)
}

func TestLookupAOrCNAME(t *testing.T) {
	f := &fakeNet{
		hosts:  map[string][]string{"a.example": {"192.0.2.1"}},
		cnames: map[string]string{"alias.example": "target.example.", "self.example": "self.example."},
	}
	r, _ := newTestResolver(t, f, nil)
	ctx := context.Background()

	got, err := r.LookupAOrCNAME(ctx, "a.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, got)

	got, err = r.LookupAOrCNAME(ctx, "alias.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"target.example."}, got)

	got, err = r.LookupAOrCNAME(ctx, "self.example")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.LookupAOrCNAME(ctx, "none.example")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookupName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Example.COM", "example.com", false},
		{"localhost.", "localhost.", false},
		{"bücher.example", "xn--bcher-kva.example", false},
		{"b_c.com", "b_c.com", false},
		{"", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := lookupName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolverWithValidator(t *testing.T) {
	f := &fakeNet{
		mx:    map[string][]*net.MX{"example.com": {{Host: "mx.example.com."}}},
		hosts: map[string][]string{"web.example": {"192.0.2.7"}},
	}
	r, _ := newTestResolver(t, f, nil)
	v := isemail.New(isemail.WithResolver(r))
	ctx := context.Background()

	res := v.Validate(ctx, "user@example.com", isemail.Options{CheckDNS: true})
	assert.Equal(t, isemail.Valid, res.Status)

	res = v.Validate(ctx, "user@web.example", isemail.Options{CheckDNS: true})
	assert.Equal(t, []isemail.Code{isemail.DNSWarnNoMXRecord}, res.Warnings)

	res = v.Validate(ctx, "user@gone.example", isemail.Options{CheckDNS: true})
	assert.Equal(t, []isemail.Code{isemail.DNSWarnNoMXRecord, isemail.DNSWarnNoRecord}, res.Warnings)
	assert.True(t, res.Valid)
}

func TestPing(t *testing.T) {
	f := &fakeNet{}
	r, _ := newTestResolver(t, f, nil)
	assert.NoError(t, r.Ping(context.Background()))
	assert.Equal(t, []string{"MX example.com"}, f.calls)

	f.errs = []error{errors.New("connection refused")}
	assert.Error(t, r.Ping(context.Background()))
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := retry(ctx, backoff{}, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBackoffJitterDefaults(t *testing.T) {
	assert.Equal(t, 0.1, backoff{}.withDefaults().Jitter)
	assert.Equal(t, 0.25, backoff{Jitter: 0.25}.withDefaults().Jitter)
	assert.Negative(t, backoff{Jitter: -1}.withDefaults().Jitter)
}

func TestJitterSpreadsDelays(t *testing.T) {
	const d = 100 * time.Millisecond
	seen := map[time.Duration]bool{}
	for i := 0; i < 200; i++ {
		got := jitter(d, 0.1)
		assert.GreaterOrEqual(t, got, 90*time.Millisecond)
		assert.LessOrEqual(t, got, 110*time.Millisecond)
		seen[got] = true
	}
	assert.Greater(t, len(seen), 1, "jittered delays should not all be equal")

	assert.Equal(t, d, jitter(d, -1))
}

func TestRetryReportsJitteredWaits(t *testing.T) {
	var waits []time.Duration
	b := backoff{
		Attempts:     6,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		OnRetry: func(_ int, _ error, delay time.Duration) {
			waits = append(waits, delay)
		},
	}
	_, err := retry(context.Background(), b, func(context.Context) (int, error) {
		return 0, &net.DNSError{Err: "timeout", IsTimeout: true}
	})
	require.Error(t, err)
	require.Len(t, waits, 5)

	distinct := map[time.Duration]bool{}
	for _, w := range waits {
		assert.InDelta(t, float64(time.Millisecond), float64(w), float64(time.Millisecond)/10)
		distinct[w] = true
	}
	assert.Greater(t, len(distinct), 1)
}
