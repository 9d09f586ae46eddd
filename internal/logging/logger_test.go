package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesServiceAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "wallet", "warn")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("kept", "account_id", "acc-1")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "wallet" || line["account_id"] != "acc-1" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "", "loud")
	logger.Info("hello")
	if buf.Len() == 0 {
		t.Fatal("expected info output for invalid level")
	}
}
