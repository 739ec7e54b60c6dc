// Copyright 2025 Octank Insurance
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	if err := os.Setenv("INSTANCE_ID", "instance-123"); err != nil {
		t.Fatalf("failed to set INSTANCE_ID: %v", err)
	}
	defer os.Unsetenv("INSTANCE_ID")

	l := New("orchestrator")
	if l.Component != "orchestrator" {
		t.Errorf("expected component 'orchestrator', got %q", l.Component)
	}
	if l.Instance != "instance-123" {
		t.Errorf("expected instance 'instance-123', got %q", l.Instance)
	}
}

func captureOutput(fn func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(orig)
		log.SetFlags(flags)
	}()
	fn()
	return buf.String()
}

func TestLogEntryShape(t *testing.T) {
	l := &Logger{Component: "supervisor", Instance: "test"}

	out := captureOutput(func() {
		l.Info("sess_abc", "req_1", "intent classified", map[string]any{
			"intent":     "fnol",
			"confidence": 0.92,
		})
	})

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v\noutput: %s", err, out)
	}

	if entry.Level != INFO {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}
	if entry.Component != "supervisor" {
		t.Errorf("expected component 'supervisor', got %q", entry.Component)
	}
	if entry.SessionID != "sess_abc" {
		t.Errorf("expected session_id 'sess_abc', got %q", entry.SessionID)
	}
	if entry.Fields["intent"] != "fnol" {
		t.Errorf("expected intent field 'fnol', got %v", entry.Fields["intent"])
	}
}

func TestInfoWithDuration(t *testing.T) {
	l := &Logger{Component: "loop", Instance: "test"}

	out := captureOutput(func() {
		l.InfoWithDuration("sess_abc", "", "turn complete", 421, nil)
	})

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry.Fields["duration_ms"] != float64(421) {
		t.Errorf("expected duration_ms 421, got %v", entry.Fields["duration_ms"])
	}
}

func TestLogLevels(t *testing.T) {
	l := &Logger{Component: "guardrails", Instance: "test"}

	tests := []struct {
		name  string
		fn    func(sessionID, requestID, message string, fields map[string]any)
		level LogLevel
	}{
		{"debug", l.Debug, DEBUG},
		{"info", l.Info, INFO},
		{"warn", l.Warn, WARN},
		{"error", l.Error, ERROR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(func() {
				tt.fn("", "", "message", nil)
			})
			var entry LogEntry
			if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
				t.Fatalf("log output is not valid JSON: %v", err)
			}
			if entry.Level != tt.level {
				t.Errorf("expected level %s, got %s", tt.level, entry.Level)
			}
		})
	}
}
