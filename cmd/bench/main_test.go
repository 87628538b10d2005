package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SKDesing/aura-osint/go-preintel/internal/bench"
)

func setup(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PREINTEL_CONFIG", "PREINTEL_CODEC_ADDR", "PREINTEL_PROTOTYPES", "ANTHROPIC_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv("PREINTEL_LOG_LEVEL", "error")
	t.Setenv("PREINTEL_DB", filepath.Join(t.TempDir(), "bench.db"))
}

func writeDataset(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBenchPasses(t *testing.T) {
	setup(t)
	dataset := writeDataset(t,
		`{"prompt": "he keeps sending threats to my account every night", "expected_decision": "harassment"}`,
		`{"prompt": "classify this message as spam or not", "expected_decision": "classification"}`,
		`{"prompt": "write a short poem about the sea", "expected_decision": "llm"}`,
	)
	out := filepath.Join(t.TempDir(), "report.json")
	var stdout, stderr bytes.Buffer

	code := run([]string{"--dataset", dataset, "--out", out}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var rep bench.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Total != 3 || !rep.Passed {
		t.Errorf("report total=%d passed=%v, want 3 true", rep.Total, rep.Passed)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty when --out is set, got %q", stdout.String())
	}
}

func TestBenchAllLLMFailsGate(t *testing.T) {
	setup(t)
	dataset := writeDataset(t,
		`{"prompt": "write a short poem about the sea", "expected_decision": "llm"}`,
		`{"prompt": "explain how tides work to a child", "expected_decision": "llm"}`,
	)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--dataset", dataset}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit %d, want 1; stderr:\n%s", code, stderr.String())
	}
	var rep bench.Report
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.BypassRate != 0 {
		t.Errorf("bypass rate = %v, want 0", rep.BypassRate)
	}
	if !strings.Contains(stderr.String(), "[FAIL] bypass_rate") {
		t.Errorf("stderr missing bypass gate failure:\n%s", stderr.String())
	}
}

func TestBenchUsageErrors(t *testing.T) {
	setup(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no dataset", nil},
		{"missing dataset file", []string{"--dataset", filepath.Join(t.TempDir(), "nope.jsonl")}},
		{"unknown flag", []string{"--bogus"}},
		{"invalid label", []string{"--dataset", writeDataset(t, `{"prompt": "x", "expected_decision": "summarize"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 2 {
				t.Errorf("exit %d, want 2", code)
			}
		})
	}
}
