// Package metrics emits CloudWatch Embedded Metric Format (EMF) documents.
// Each flush is one JSON line; CloudWatch Logs extracts the metrics from it,
// so recording never makes a network call. Outside Lambda the lines are
// plain structured output.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Namespace groups every metric the inference services emit.
const Namespace = "CivicSense/Inference"

// CloudWatch units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout

	serviceName string
)

// SetOutput redirects flushed documents; it returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

// SetService sets the Service dimension added to every recorder.
func SetService(name string) {
	outMu.Lock()
	serviceName = name
	outMu.Unlock()
}

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type directive struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

type awsBlock struct {
	Timestamp         int64       `json:"Timestamp"`
	CloudWatchMetrics []directive `json:"CloudWatchMetrics"`
}

// Recorder accumulates one EMF document. Use one per operation; it is not
// safe for concurrent use.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	units      map[string]string
	values     map[string]float64
	properties map[string]any
}

// New starts a recorder in namespace, pre-filled with the Service dimension
// and, inside Lambda, the FunctionName dimension.
func New(namespace string) *Recorder {
	r := &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		units:      make(map[string]string),
		values:     make(map[string]float64),
		properties: make(map[string]any),
	}
	outMu.Lock()
	if serviceName != "" {
		r.dimensions["Service"] = serviceName
	}
	outMu.Unlock()
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		r.dimensions["FunctionName"] = fn
	}
	return r
}

// Dimension adds an indexed dimension.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records value under name with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.units[name] = unit
	r.values[name] = value
	return r
}

// Count records a count of one.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Duration records d in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property attaches a searchable, non-metric field.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as a single line. Recorders without metrics
// write nothing.
func (r *Recorder) Flush() {
	if len(r.values) == 0 {
		return
	}

	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, metricDef{Name: name, Unit: r.units[name]})
	}

	dims := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dims = append(dims, k)
	}
	sort.Strings(dims)

	doc := make(map[string]any, len(r.properties)+len(r.dimensions)+len(r.values)+1)
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	doc["_aws"] = awsBlock{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []directive{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dims},
			Metrics:    defs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}

	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(data))
}
