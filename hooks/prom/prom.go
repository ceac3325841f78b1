// Package promhook exports vercache events as Prometheus counters.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/vercache"
)

type Hooks struct {
	seeded      *prometheus.CounterVec
	invalidated *prometheus.CounterVec
	version     *prometheus.GaugeVec
	selfHeal    *prometheus.CounterVec
	backendErr  *prometheus.CounterVec
	rejected    prometheus.Counter
}

var _ vercache.Hooks = (*Hooks)(nil)

type Options struct {
	Namespace string // metric prefix; "" => "vercache"
	// CacheName labels every series, for processes running several caches.
	CacheName string
	// TrackVersions exports the current version per group. Leave off when
	// group names are unbounded.
	TrackVersions bool
}

// New registers the collectors with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer, opts Options) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "vercache"
	}
	constLabels := prometheus.Labels{"cache": opts.CacheName}

	h := &Hooks{
		seeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "version_seeded_total",
			Help:        "Group counters written at the baseline version.",
			ConstLabels: constLabels,
		}, []string{"group"}),
		invalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "group_invalidations_total",
			Help:        "Group version bumps.",
			ConstLabels: constLabels,
		}, []string{"group"}),
		selfHeal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "self_heal_total",
			Help:        "Entries deleted on read, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		backendErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "backend_errors_total",
			Help:        "Backend failures served as miss or no-op, by operation.",
			ConstLabels: constLabels,
		}, []string{"op"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "set_rejected_total",
			Help:        "Writes refused by the backend.",
			ConstLabels: constLabels,
		}),
	}
	cs := []prometheus.Collector{h.seeded, h.invalidated, h.selfHeal, h.backendErr, h.rejected}
	if opts.TrackVersions {
		h.version = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "group_version",
			Help:        "Current version of each group as last seen by this process.",
			ConstLabels: constLabels,
		}, []string{"group"})
		cs = append(cs, h.version)
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) VersionSeeded(group string) {
	h.seeded.WithLabelValues(group).Inc()
	if h.version != nil {
		h.version.WithLabelValues(group).Set(float64(vercache.BaselineVersion))
	}
}

func (h *Hooks) GroupInvalidated(group string, newVersion uint64) {
	h.invalidated.WithLabelValues(group).Inc()
	if h.version != nil {
		h.version.WithLabelValues(group).Set(float64(newVersion))
	}
}

func (h *Hooks) SelfHeal(_ string, reason string) { h.selfHeal.WithLabelValues(reason).Inc() }
func (h *Hooks) BackendError(op string, _ error)  { h.backendErr.WithLabelValues(op).Inc() }
func (h *Hooks) SetRejected(string)               { h.rejected.Inc() }
