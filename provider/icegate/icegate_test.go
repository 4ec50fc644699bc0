package icegate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sessionCookie = "ICEGATE_SESSION"
	lookupPath    = "/cbu/icegateapi/igexratepublishnot"
)

// portal is a fake ICEGATE portal
type portal struct {
	bodies  map[string]string // notNum -> response body
	dropped map[string]bool   // notNum -> connection closed without a response
	stalled map[string]bool   // notNum -> no response until the client gives up

	mu       sync.Mutex
	probed   []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration

	noCookie atomic.Int32 // probes without the session cookie
}

func (p *portal) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "abc", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc(lookupPath, func(w http.ResponseWriter, r *http.Request) {
		current := p.inFlight.Add(1)
		defer p.inFlight.Add(-1)

		for {
			seen := p.maxSeen.Load()
			if current <= seen || p.maxSeen.CompareAndSwap(seen, current) {
				break
			}
		}

		if _, err := r.Cookie(sessionCookie); err != nil {
			p.noCookie.Add(1)
		}

		var req lookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		p.mu.Lock()
		p.probed = append(p.probed, req.NotNum)
		p.mu.Unlock()

		if p.delay > 0 {
			time.Sleep(p.delay)
		}

		if p.dropped[req.NotNum] {
			hj, ok := w.(http.Hijacker)
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)

				return
			}

			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}

			return
		}

		if p.stalled[req.NotNum] {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}

			return
		}

		body, ok := p.bodies[req.NotNum]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	return mux
}

func notificationBody(number, publish string) string {
	return fmt.Sprintf(`{
		"notificationNumber": %q,
		"notPublishDate": %q,
		"currencyDetail": [{"currencyCode": "USD", "cbicExport": 83.5, "units": "1.0"}]
	}`, number, publish)
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	return NewClient(srv.URL, srv.URL+lookupPath, 5*time.Second, opts...)
}

func TestClient_Discover(t *testing.T) {
	t.Parallel()

	t.Run("valid notifications", func(t *testing.T) {
		t.Parallel()

		p := &portal{
			bodies: map[string]string{
				"01/2026": notificationBody("01/2026", "05-01-2026"),
				"03/2026": notificationBody("03/2026", "10-02-2026"),
				"05/2026": notificationBody("", "01-03-2026"),

				// Invalid responses
				"02/2026": `{"currencyDetail": []}`,
				"04/2026": `{"currencyDetail": [`,
				"06/2026": `{"currencyDetail": [{"currencyCode": "USD"}], "notPublishDate": "bad"}`,
			},
		}

		srv := httptest.NewServer(p.handler())
		t.Cleanup(srv.Close)

		discovery, err := newTestClient(srv).Discover(
			context.Background(),
			2026,
			IDRange{From: 1, To: 10},
		)
		require.NoError(t, err)

		assert.Equal(t, 10, discovery.Probed)
		assert.Equal(t, 7, discovery.Absent)
		require.Len(t, discovery.Notifications, 3)

		numbers := make([]string, 0, 3)
		for _, n := range discovery.Notifications {
			numbers = append(numbers, n.Number)
		}

		// The missing notification number falls back to the probed identifier
		assert.ElementsMatch(t, []string{"01/2026", "03/2026", "05/2026"}, numbers)

		// Every probe carries the session cookie
		assert.Zero(t, p.noCookie.Load())

		p.mu.Lock()
		defer p.mu.Unlock()

		assert.Len(t, p.probed, 10)
		assert.Contains(t, p.probed, "10/2026")
	})

	t.Run("transport failures count as absent", func(t *testing.T) {
		t.Parallel()

		p := &portal{
			bodies: map[string]string{
				"01/2026": notificationBody("01/2026", "05-01-2026"),
				"02/2026": notificationBody("02/2026", "10-01-2026"),
				"03/2026": notificationBody("03/2026", "15-01-2026"),
				"04/2026": notificationBody("04/2026", "20-01-2026"),
			},
			dropped: map[string]bool{"02/2026": true},
			stalled: map[string]bool{"03/2026": true},
		}

		srv := httptest.NewServer(p.handler())
		t.Cleanup(srv.Close)

		c := NewClient(srv.URL, srv.URL+lookupPath, 500*time.Millisecond)

		discovery, err := c.Discover(context.Background(), 2026, IDRange{From: 1, To: 4})
		require.NoError(t, err)

		assert.Equal(t, 4, discovery.Probed)
		assert.Equal(t, 2, discovery.Absent)

		numbers := make([]string, 0, len(discovery.Notifications))
		for _, n := range discovery.Notifications {
			numbers = append(numbers, n.Number)
		}

		assert.ElementsMatch(t, []string{"01/2026", "04/2026"}, numbers)
	})

	t.Run("error marker with currency detail", func(t *testing.T) {
		t.Parallel()

		p := &portal{
			bodies: map[string]string{
				"01/2026": `{
					"error": "partial",
					"notPublishDate": "05-01-2026",
					"currencyDetail": [{"currencyCode": "USD", "cbicExport": 83.5}]
				}`,
				"02/2026": `{"error": "No valid notifications found."}`,
			},
		}

		srv := httptest.NewServer(p.handler())
		t.Cleanup(srv.Close)

		discovery, err := newTestClient(srv).Discover(
			context.Background(),
			2026,
			IDRange{From: 1, To: 2},
		)
		require.NoError(t, err)

		require.Len(t, discovery.Notifications, 1)
		assert.Equal(t, "01/2026", discovery.Notifications[0].Number)
		assert.Equal(t, 1, discovery.Absent)
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		t.Parallel()

		p := &portal{
			bodies: map[string]string{
				"07/2026": notificationBody("07/2026", "01-04-2026"),
			},
			delay: 20 * time.Millisecond,
		}

		srv := httptest.NewServer(p.handler())
		t.Cleanup(srv.Close)

		discovery, err := newTestClient(srv).Discover(
			context.Background(),
			2026,
			DefaultIDRange,
		)
		require.NoError(t, err)

		assert.Equal(t, 39, discovery.Probed)
		assert.Len(t, discovery.Notifications, 1)

		assert.LessOrEqual(t, p.maxSeen.Load(), int32(DefaultWorkers))
		assert.Positive(t, p.maxSeen.Load())
	})

	t.Run("single worker", func(t *testing.T) {
		t.Parallel()

		p := &portal{
			bodies: map[string]string{
				"02/2026": notificationBody("02/2026", "15-01-2026"),
			},
		}

		srv := httptest.NewServer(p.handler())
		t.Cleanup(srv.Close)

		discovery, err := newTestClient(srv, WithWorkers(1)).Discover(
			context.Background(),
			2026,
			IDRange{From: 1, To: 4},
		)
		require.NoError(t, err)

		assert.Len(t, discovery.Notifications, 1)
		assert.Equal(t, int32(1), p.maxSeen.Load())
	})

	t.Run("no notifications found", func(t *testing.T) {
		t.Parallel()

		p := &portal{
			bodies: map[string]string{},
		}

		srv := httptest.NewServer(p.handler())
		t.Cleanup(srv.Close)

		_, err := newTestClient(srv).Discover(
			context.Background(),
			2026,
			IDRange{From: 1, To: 5},
		)
		assert.ErrorIs(t, err, ErrNoNotifications)
	})

	t.Run("session failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := NewClient(url, url+lookupPath, time.Second)

		_, err := c.Discover(context.Background(), 2026, DefaultIDRange)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoNotifications)
	})

	t.Run("invalid range", func(t *testing.T) {
		t.Parallel()

		c := NewClient("http://127.0.0.1:0", "http://127.0.0.1:0", time.Second)

		_, err := c.Discover(context.Background(), 2026, IDRange{From: 5, To: 1})
		assert.ErrorIs(t, err, errInvalidRange)
	})
}

func TestIDRange_Len(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 39, DefaultIDRange.Len())
	assert.Equal(t, 1, IDRange{From: 3, To: 3}.Len())
	assert.Zero(t, IDRange{From: 0, To: 3}.Len())
	assert.Zero(t, IDRange{From: 4, To: 3}.Len())
}
