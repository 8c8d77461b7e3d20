package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProvider struct {
	calls  atomic.Int32
	places map[string]Point
	delay  time.Duration
}

func (f *fakeProvider) Lookup(ctx context.Context, address string) (float64, float64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
	p, ok := f.places[address]
	if !ok {
		return 0, 0, ErrNoResult
	}
	return p.Lat, p.Lon, nil
}

func newGeocoder(t *testing.T, p Provider, timeout time.Duration) *Geocoder {
	t.Helper()
	g, err := New(p, Config{Timeout: timeout, CacheSize: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGeocode_MemoisesByTrimmedAddress(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{places: map[string]Point{"Paris, France": {Lat: 48.85, Lon: 2.35}}}
	g := newGeocoder(t, p, time.Second)
	ctx := context.Background()

	lat, lon, ok := g.Geocode(ctx, "  Paris, France ")
	if !ok || lat != 48.85 || lon != 2.35 {
		t.Fatalf("got %v %v %v", lat, lon, ok)
	}
	if _, _, ok := g.Geocode(ctx, "Paris, France"); !ok {
		t.Fatalf("second lookup failed")
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("provider called %d times", n)
	}
}

func TestGeocode_CallerCancellationIsNotMemoisedAsFailure(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{places: map[string]Point{"Paris": {Lat: 48.85, Lon: 2.35}}, delay: 10 * time.Millisecond}
	g := newGeocoder(t, p, time.Second)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	g.Geocode(cancelled, "Paris")

	lat, lon, ok := g.Geocode(context.Background(), "Paris")
	if !ok || lat != 48.85 || lon != 2.35 {
		t.Fatalf("later lookup got %v %v %v", lat, lon, ok)
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("provider called %d times", n)
	}
}

func TestGeocode_SoftFailIsMemoised(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{places: map[string]Point{}}
	g := newGeocoder(t, p, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, ok := g.Geocode(ctx, "not a real place ZZZZ"); ok {
			t.Fatalf("expected absent coordinates")
		}
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("failure not memoised, provider called %d times", n)
	}
	if pt, ok := g.Point(ctx, "not a real place ZZZZ"); ok || pt != nil {
		t.Fatalf("Point = %+v", pt)
	}
}

func TestGeocode_EmptyAddressSkipsProvider(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	g := newGeocoder(t, p, time.Second)
	if _, _, ok := g.Geocode(context.Background(), "   "); ok {
		t.Fatalf("empty address resolved")
	}
	if p.calls.Load() != 0 {
		t.Fatalf("provider called for empty address")
	}
}

func TestGeocode_TimeoutMapsToAbsent(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{places: map[string]Point{"Lyon": {Lat: 45.76, Lon: 4.83}}, delay: time.Second}
	g := newGeocoder(t, p, 20*time.Millisecond)
	start := time.Now()
	if _, _, ok := g.Geocode(context.Background(), "Lyon"); ok {
		t.Fatalf("expected timeout to yield absent")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not applied")
	}
}

func TestGeocode_ConcurrentCallersShareLookup(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{places: map[string]Point{"Lyon": {Lat: 45.76, Lon: 4.83}}, delay: 50 * time.Millisecond}
	g := newGeocoder(t, p, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, ok := g.Geocode(context.Background(), "Lyon"); !ok {
				t.Errorf("lookup failed")
			}
		}()
	}
	wg.Wait()
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("provider called %d times", n)
	}
}

func TestNominatimProvider(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "vendorlens-test" {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		switch r.URL.Query().Get("q") {
		case "Paris":
			_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris"}]`))
		case "broken":
			_, _ = w.Write([]byte(`{`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL, "vendorlens-test", srv.Client())
	ctx := context.Background()

	lat, lon, err := p.Lookup(ctx, "Paris")
	if err != nil || lat != 48.8566 || lon != 2.3522 {
		t.Fatalf("Paris = %v %v %v", lat, lon, err)
	}
	if _, _, err := p.Lookup(ctx, "nowhere"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
	if _, _, err := p.Lookup(ctx, "broken"); err == nil {
		t.Fatalf("expected decode error")
	}

	g := newGeocoder(t, p, time.Second)
	if _, _, ok := g.Geocode(ctx, "broken"); ok {
		t.Fatalf("decode error must map to absent")
	}
}
