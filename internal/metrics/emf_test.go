package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestNew_Dimensions(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "caption-api")
	SetService("caption-api")
	t.Cleanup(func() { SetService("") })

	r := New(Namespace)
	if r.dimensions["FunctionName"] != "caption-api" {
		t.Errorf("expected FunctionName dimension caption-api, got %q", r.dimensions["FunctionName"])
	}
	if r.dimensions["Service"] != "caption-api" {
		t.Errorf("expected Service dimension caption-api, got %q", r.dimensions["Service"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	buf := captureOutput(t)

	New(Namespace).
		Dimension("Endpoint", "/predict").
		Duration("RequestLatencyMs", 1500*time.Millisecond).
		Count("RequestCount").
		Property("statusCode", 200).
		Flush()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	aws, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := aws["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}
	cw, ok := aws["CloudWatchMetrics"].([]any)
	if !ok || len(cw) != 1 {
		t.Fatal("CloudWatchMetrics should hold one directive")
	}
	d := cw[0].(map[string]any)
	if d["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, d["Namespace"])
	}
	metrics := d["Metrics"].([]any)
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metric definitions, got %d", len(metrics))
	}
	if first := metrics[0].(map[string]any); first["Name"] != "RequestCount" || first["Unit"] != UnitCount {
		t.Errorf("expected sorted RequestCount/Count first, got %v", first)
	}

	if doc["Endpoint"] != "/predict" {
		t.Errorf("expected Endpoint=/predict, got %v", doc["Endpoint"])
	}
	if doc["RequestLatencyMs"] != float64(1500) {
		t.Errorf("expected RequestLatencyMs=1500, got %v", doc["RequestLatencyMs"])
	}
	if doc["statusCode"] != float64(200) {
		t.Errorf("expected statusCode=200, got %v", doc["statusCode"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := captureOutput(t)
	New("Test").Dimension("Endpoint", "/x").Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_SingleLine(t *testing.T) {
	buf := captureOutput(t)
	New("Test").Count("A").Flush()
	New("Test").Count("B").Flush()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
}
