package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "contextfocus"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	transitions      *prom.CounterVec
	focusActive      prom.Gauge
	sessionMinutes   prom.Histogram
	redirects        *prom.CounterVec
	ticks            *prom.CounterVec
	messages         *prom.CounterVec
	commandDuration  *prom.HistogramVec
	queueDepth       prom.Gauge
	bridgeClients    prom.Gauge
	broadcastDropped *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the daemon metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.transitions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "focus_transitions_total",
			Help:      "Focus session transitions by direction and trigger",
		}, []string{"direction", "trigger"})
		pr.focusActive = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "focus_active",
			Help:      "1 while a focus session is active",
		})
		pr.sessionMinutes = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "session_minutes",
			Help:      "Length of finished focus sessions in minutes",
			Buckets:   []float64{5, 15, 25, 45, 60, 90, 120, 180, 240},
		})
		pr.redirects = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Tabs redirected to the blocked page by source",
		}, []string{"source"})
		pr.ticks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Accrual ticks by kind",
		}, []string{"kind"})
		pr.messages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Router messages by type and outcome",
		}, []string{"type", "outcome"})
		pr.commandDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling a command on the focus loop",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "command_queue_depth",
			Help:      "Commands waiting on the focus loop",
		})
		pr.bridgeClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_clients",
			Help:      "Connected WebSocket bridge clients",
		})
		pr.broadcastDropped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Broadcast events dropped because a sink was full",
		}, []string{"sink"})
		reg.MustRegister(pr.transitions, pr.focusActive, pr.sessionMinutes, pr.redirects, pr.ticks,
			pr.messages, pr.commandDuration, pr.queueDepth, pr.bridgeClients, pr.broadcastDropped)
	})
	return pr
}

func (p *PrometheusRecorder) IncTransition(dir Direction, trigger string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(string(dir), trigger).Inc()
}

func (p *PrometheusRecorder) SetFocusActive(active bool) {
	if p == nil || p.focusActive == nil {
		return
	}
	if active {
		p.focusActive.Set(1)
		return
	}
	p.focusActive.Set(0)
}

func (p *PrometheusRecorder) ObserveSessionMinutes(minutes int) {
	if p == nil || p.sessionMinutes == nil {
		return
	}
	p.sessionMinutes.Observe(float64(minutes))
}

func (p *PrometheusRecorder) IncRedirect(source string) {
	if p == nil || p.redirects == nil {
		return
	}
	p.redirects.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncTick(kind string) {
	if p == nil || p.ticks == nil {
		return
	}
	p.ticks.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncMessage(msgType string, outcome Outcome) {
	if p == nil || p.messages == nil {
		return
	}
	p.messages.WithLabelValues(msgType, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveCommandDuration(kind string, d time.Duration) {
	if p == nil || p.commandDuration == nil {
		return
	}
	p.commandDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) SetBridgeClients(n int) {
	if p == nil || p.bridgeClients == nil {
		return
	}
	p.bridgeClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncBroadcastDropped(sink string, n int) {
	if p == nil || p.broadcastDropped == nil || n <= 0 {
		return
	}
	p.broadcastDropped.WithLabelValues(sink).Add(float64(n))
}
