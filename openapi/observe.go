package openapi

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// UnmatchedLabel is the pattern label of the response counter for requests
// that matched no registered route.
const UnmatchedLabel = "unmatched"

// Observations records the response status codes actually returned for
// each operation. Sets only grow; nothing is persisted across restarts.
//
// It is safe for concurrent use without external locking: every key holds
// a pointer to an immutable sorted slice that writers replace with
// compare-and-swap.
type Observations struct {
	codes   sync.Map // string -> *atomic.Pointer[[]int]
	counter *prometheus.CounterVec
}

// NewObservations returns an empty store.
func NewObservations() *Observations {
	return &Observations{}
}

// Instrument registers a counter of recorded responses, labelled by method,
// pattern and code, with reg.
func (o *Observations) Instrument(reg prometheus.Registerer) error {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routedoc",
		Name:      "observed_responses_total",
		Help:      "Responses observed per documented operation and status code.",
	}, []string{"method", "pattern", "code"})

	if err := reg.Register(counter); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if !errors.As(err, &are) {
			return err
		}
		counter = are.ExistingCollector.(*prometheus.CounterVec)
	}
	o.counter = counter
	return nil
}

func observationKey(method, pattern string) string {
	return strings.ToUpper(method) + " " + pattern
}

// Record adds code to the set observed for method and pattern.
func (o *Observations) Record(method, pattern string, code int) {
	o.record(method, pattern, pattern, code)
}

// RecordUnmatched adds code to the set observed for method and a raw path
// that matched no route. The response counter labels it UnmatchedLabel so
// arbitrary paths cannot grow the number of series.
func (o *Observations) RecordUnmatched(method, rawPath string, code int) {
	o.record(method, rawPath, UnmatchedLabel, code)
}

func (o *Observations) record(method, pattern, label string, code int) {
	method = strings.ToUpper(method)
	if o.counter != nil {
		o.counter.WithLabelValues(method, label, strconv.Itoa(code)).Inc()
	}

	v, _ := o.codes.LoadOrStore(observationKey(method, pattern), atomic.NewPointer(&[]int{}))
	ptr := v.(*atomic.Pointer[[]int])

	for {
		old := ptr.Load()
		i, found := slices.BinarySearch(*old, code)
		if found {
			return
		}
		next := slices.Insert(slices.Clone(*old), i, code)
		if ptr.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Get returns the codes observed for method and pattern in ascending
// order. The result is a copy and is empty for unseen operations.
func (o *Observations) Get(method, pattern string) []int {
	v, ok := o.codes.Load(observationKey(method, pattern))
	if !ok {
		return nil
	}
	return slices.Clone(*v.(*atomic.Pointer[[]int]).Load())
}
