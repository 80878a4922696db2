package edge

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// rateLimit is a simple per-process token bucket applied to every admin
// request, the same shape the teacher's own VM HTTP bootstrap wires up
// around its /execute endpoint.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// readyState tracks whether the repository is open and the node is ready
// to serve /healthz as 200.
type readyState struct {
	mu    sync.RWMutex
	ready bool
}

func (r *readyState) set(v bool) {
	r.mu.Lock()
	r.ready = v
	r.mu.Unlock()
}

func (r *readyState) get() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// AdminRouter builds the additive HTTP admin surface: GET /healthz and
// GET /metrics. It does not serve Block/Message data; it is operational
// only, alongside the TCP line protocol.
func AdminRouter(registry *prometheus.Registry) (http.Handler, func(bool)) {
	state := &readyState{}
	r := chi.NewRouter()
	r.Use(rateLimit(rate.NewLimiter(200, 100)))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !state.get() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r, state.set
}
