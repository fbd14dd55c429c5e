// Package metric measures throughput of pipe components. Counters are
// published with expvar under "pipe.components.<name>.<counter>".
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/wavpipe/signal"
)

const componentsLabel = "pipe.components"

const (
	// MessageCounter measures number of messages.
	MessageCounter = "Messages"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// RateCounter is the latest throughput in samples per second.
	RateCounter = "Rate"
)

const (
	// DefaultWindow is the period between rate updates.
	DefaultWindow = 500 * time.Millisecond
	// DefaultAlpha is the weight of the latest measurement.
	DefaultAlpha = 0.15
)

var (
	components = metrics{
		m: make(map[string]*metric),
	}

	counters = []string{
		MessageCounter,
		SampleCounter,
		DurationCounter,
		RateCounter,
	}
)

// Get metrics values for provided component name.
func Get(name string) map[string]string {
	return getCounters(name)
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for name := range components.m {
		m[name] = getCounters(name)
	}
	return m
}

func getCounters(name string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(name, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

type (
	// Meter captures counters of a single component and calculates its
	// rate as exponential moving average. Measure is called by the
	// component, Rate can be called from any goroutine.
	Meter struct {
		metric     *metric
		sampleRate signal.Frequency
		window     time.Duration
		alpha      float64
		now        func() time.Time

		mu            sync.Mutex
		rate          float64
		averaged      bool
		started       bool
		stopped       bool
		windowStart   time.Time
		windowSamples int
		lastMeasured  time.Time
		// period is the longest of the playback duration of the latest
		// measurement and the gap before it.
		period time.Duration
	}

	// MeterOption configures the meter.
	MeterOption func(*Meter)
)

// WithWindow sets the period between rate updates.
func WithWindow(d time.Duration) MeterOption {
	return func(m *Meter) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithAlpha sets the weight of the latest measurement in the average.
func WithAlpha(alpha float64) MeterOption {
	return func(m *Meter) {
		if alpha > 0 && alpha <= 1 {
			m.alpha = alpha
		}
	}
}

// WithClock replaces the time source of the meter.
func WithClock(now func() time.Time) MeterOption {
	return func(m *Meter) {
		m.now = now
	}
}

// NewMeter creates a meter for the named component. Meters with the same
// name share counters, the rate counter reports the latest meter.
func NewMeter(name string, sampleRate signal.Frequency, options ...MeterOption) *Meter {
	m := &Meter{
		metric:     components.get(name),
		sampleRate: sampleRate,
		window:     DefaultWindow,
		alpha:      DefaultAlpha,
		now:        time.Now,
	}
	for _, option := range options {
		option(m)
	}
	m.metric.meter.Store(m)
	return m
}

// Start resets the rate state. It should be called before the first
// measurement.
func (m *Meter) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = 0
	m.averaged = false
	m.started = false
	m.stopped = false
	m.windowSamples = 0
	m.period = 0
}

// Stop makes the rate zero until meter is started again.
func (m *Meter) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.rate = 0
}

// Measure captures number of samples processed by the component.
func (m *Meter) Measure(samples int) {
	m.metric.messages.Add(1)
	m.metric.samples.Add(int64(samples))
	m.metric.duration.add(m.sampleRate.Duration(samples))

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.period = m.sampleRate.Duration(samples)
	if !m.started {
		m.started = true
		m.windowStart = now
	} else if gap := now.Sub(m.lastMeasured); gap > m.period {
		m.period = gap
	}
	m.lastMeasured = now
	m.windowSamples += samples
	elapsed := now.Sub(m.windowStart)
	if elapsed < m.window {
		return
	}
	current := float64(m.windowSamples) / elapsed.Seconds()
	if !m.averaged {
		m.averaged = true
		m.rate = current
	} else {
		m.rate = m.alpha*current + (1-m.alpha)*m.rate
	}
	m.windowStart = now
	m.windowSamples = 0
}

// Rate returns the average throughput in samples per second. Until the
// first window is complete, it's estimated from the samples measured so
// far. It's zero before any measurement, after stop and when nothing was
// measured for two windows. When a single measurement covers more than a
// window, two such periods are awaited instead.
func (m *Meter) Rate() float64 {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || !m.started {
		return 0
	}
	if now.Sub(m.lastMeasured) > 2*max(m.window, m.period) {
		return 0
	}
	if m.averaged {
		return m.rate
	}
	// samples take at least their own playback time
	elapsed := max(now.Sub(m.windowStart), m.period)
	if elapsed <= 0 {
		return 0
	}
	return float64(m.windowSamples) / elapsed.Seconds()
}

type metrics struct {
	sync.Mutex
	m map[string]*metric
}

func (m *metrics) get(name string) *metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[name]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(name)
	m.m[name] = metric
	return metric
}

type metric struct {
	messages *expvar.Int
	samples  *expvar.Int
	duration *duration
	meter    atomic.Pointer[Meter]
}

func newMetric(name string) *metric {
	m := &metric{
		messages: expvar.NewInt(key(name, MessageCounter)),
		samples:  expvar.NewInt(key(name, SampleCounter)),
		duration: &duration{},
	}
	expvar.Publish(key(name, DurationCounter), m.duration)
	expvar.Publish(key(name, RateCounter), expvar.Func(func() interface{} {
		if meter := m.meter.Load(); meter != nil {
			return meter.Rate()
		}
		return 0
	}))
	return m
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, name, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}
