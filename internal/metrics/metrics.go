// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/linkd/internal/state"
	"github.com/tamzrod/linkd/internal/transport"
)

const namespace = "linkd"

// Metrics holds the daemon's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	connectivity prometheus.Gauge       // current ConnectivityState value
	transportUp  *prometheus.GaugeVec   // 1 while a transport is open
	uplink       *prometheus.CounterVec // serial frames forwarded, by transport and result
	downlink     *prometheus.CounterVec // frames relayed to the board, by kind
	fallbacks    prometheus.Counter     // provisioning episodes started
	saves        prometheus.Counter     // provisioning saves applied
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		connectivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectivity_state",
			Help:      "Current connectivity state (0=offline ... 5=online)",
		}),

		transportUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "up",
			Help:      "Transport open (1) or not (0)",
		}, []string{"transport"}),

		uplink: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "uplink",
			Name:      "frames_total",
			Help:      "Serial frames forwarded upstream",
		}, []string{"transport", "result"}),

		downlink: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downlink",
			Name:      "frames_total",
			Help:      "Inbound frames relayed to the board",
		}, []string{"kind"}),

		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provisioning",
			Name:      "fallbacks_total",
			Help:      "Provisioning fallback episodes started",
		}),

		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provisioning",
			Name:      "saves_total",
			Help:      "Provisioning saves applied",
		}),
	}

	m.registry.MustRegister(
		m.connectivity,
		m.transportUp,
		m.uplink,
		m.downlink,
		m.fallbacks,
		m.saves,
	)
	return m
}

// WatchWifiFailures exports a monotonically increasing failure count.
func (m *Metrics) WatchWifiFailures(fn func() int64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wifi",
		Name:      "connect_failures_total",
		Help:      "Connect cycles that exhausted their retries",
	}, func() float64 { return float64(fn()) }))
}

func (m *Metrics) SetConnectivity(s state.ConnectivityState) {
	if m == nil {
		return
	}
	m.connectivity.Set(float64(s))
}

func (m *Metrics) SetTransport(src transport.Source, st transport.Status) {
	if m == nil {
		return
	}
	v := 0.0
	if st == transport.StatusOpen {
		v = 1
	}
	m.transportUp.WithLabelValues(src.String()).Set(v)
}

func (m *Metrics) Uplink(src transport.Source, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uplink.WithLabelValues(src.String(), result).Inc()
}

func (m *Metrics) Downlink(kind string) {
	if m == nil {
		return
	}
	m.downlink.WithLabelValues(kind).Inc()
}

func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) Save() {
	if m == nil {
		return
	}
	m.saves.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("metrics listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
