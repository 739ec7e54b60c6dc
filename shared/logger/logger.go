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
	"encoding/json"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger provides structured logging for the virtual agent services.
// Every entry carries the component name plus optional session and
// request correlation IDs.
type Logger struct {
	Component string
	Instance  string
}

// LogEntry is the JSON shape written to stdout for log aggregation.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Component string         `json:"component"`
	Instance  string         `json:"instance"`
	SessionID string         `json:"session_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// New creates a Logger for the given component.
func New(component string) *Logger {
	instance := os.Getenv("INSTANCE_ID")
	if instance == "" {
		if host, err := os.Hostname(); err == nil {
			instance = host
		} else {
			instance = "unknown"
		}
	}
	return &Logger{Component: component, Instance: instance}
}

// Log writes a structured entry to stdout.
func (l *Logger) Log(level LogLevel, sessionID, requestID, message string, fields map[string]any) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.Component,
		Instance:  l.Instance,
		SessionID: sessionID,
		RequestID: requestID,
		Message:   message,
		Fields:    fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	log.Println(string(jsonBytes))
}

// Info logs an informational message.
func (l *Logger) Info(sessionID, requestID, message string, fields map[string]any) {
	l.Log(INFO, sessionID, requestID, message, fields)
}

// Error logs an error message.
func (l *Logger) Error(sessionID, requestID, message string, fields map[string]any) {
	l.Log(ERROR, sessionID, requestID, message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(sessionID, requestID, message string, fields map[string]any) {
	l.Log(WARN, sessionID, requestID, message, fields)
}

// Debug logs a debug message.
func (l *Logger) Debug(sessionID, requestID, message string, fields map[string]any) {
	l.Log(DEBUG, sessionID, requestID, message, fields)
}

// InfoWithDuration logs an info message with a duration_ms field.
func (l *Logger) InfoWithDuration(sessionID, requestID, message string, durationMS int64, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["duration_ms"] = durationMS
	l.Log(INFO, sessionID, requestID, message, fields)
}
