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

package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"octank/virtual-agent/shared/logger"
)

// AuditSink receives the redacted audit entry for every completed turn.
// Sinks must never fail the turn: delivery problems are logged and
// swallowed.
type AuditSink interface {
	Record(entry AuditEntry)
	Close()
}

// NopSink discards entries. Used when no audit database is configured;
// session-local audit logs still work.
type NopSink struct{}

func (NopSink) Record(AuditEntry) {}
func (NopSink) Close()            {}

// PostgresSink persists audit entries to Postgres through an async
// batch writer so the turn path never waits on the database.
type PostgresSink struct {
	db           *sql.DB
	writer       *auditBatchWriter
	queue        chan AuditEntry
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	log          *logger.Logger
}

// NewPostgresSink opens the audit database. On connection failure it
// returns an error; callers typically fall back to NopSink.
func NewPostgresSink(databaseURL string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := createAuditTable(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &PostgresSink{
		db:           db,
		writer:       newAuditBatchWriter(db, 100),
		queue:        make(chan AuditEntry, 10000),
		shutdownChan: make(chan struct{}),
		log:          logger.New("audit"),
	}
	s.wg.Add(1)
	go s.processQueue()
	return s, nil
}

// Record enqueues an entry. If the queue is full the entry is written
// synchronously rather than dropped.
func (s *PostgresSink) Record(entry AuditEntry) {
	select {
	case s.queue <- entry:
	default:
		s.log.Warn("", "", "audit queue full, writing directly", nil)
		if err := s.writer.write([]AuditEntry{entry}); err != nil {
			s.log.Error("", "", "direct audit write failed", map[string]any{"error": err.Error()})
		}
	}
}

// Close drains the queue, flushes pending batches, and closes the
// database connection.
func (s *PostgresSink) Close() {
	close(s.shutdownChan)
	s.wg.Wait()
	s.writer.stop()
	_ = s.db.Close()
}

// Healthy reports whether the audit database is reachable.
func (s *PostgresSink) Healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

func (s *PostgresSink) processQueue() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-s.queue:
			s.writer.add(entry)
		case <-ticker.C:
			s.writer.flush()
		case <-s.shutdownChan:
			for {
				select {
				case entry := <-s.queue:
					s.writer.add(entry)
				default:
					s.writer.flush()
					return
				}
			}
		}
	}
}

// auditBatchWriter accumulates entries and writes them in one
// transaction per batch.
type auditBatchWriter struct {
	db        *sql.DB
	batchSize int
	ticker    *time.Ticker
	done      chan struct{}
	mu        sync.Mutex
	entries   []AuditEntry
	log       *logger.Logger
}

func newAuditBatchWriter(db *sql.DB, batchSize int) *auditBatchWriter {
	w := &auditBatchWriter{
		db:        db,
		batchSize: batchSize,
		ticker:    time.NewTicker(10 * time.Second),
		done:      make(chan struct{}),
		entries:   make([]AuditEntry, 0, batchSize),
		log:       logger.New("audit-writer"),
	}
	go w.periodicFlush()
	return w
}

func (w *auditBatchWriter) add(entry AuditEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, entry)
	if len(w.entries) >= w.batchSize {
		w.flushLocked()
	}
}

func (w *auditBatchWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *auditBatchWriter) flushLocked() {
	if len(w.entries) == 0 {
		return
	}
	if err := w.write(w.entries); err != nil {
		w.log.Error("", "", "failed to write audit batch", map[string]any{"error": err.Error(), "batch": len(w.entries)})
	}
	w.entries = w.entries[:0]
}

func (w *auditBatchWriter) write(entries []AuditEntry) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO turn_audit (
			timestamp, session_id, member_id, turn, user_message,
			intent, agent, tools_called, rag_sources, response,
			latency_ms, sentiment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		toolsJSON, _ := json.Marshal(e.ToolsCalled)
		ragJSON, _ := json.Marshal(e.RAGSources)

		if _, err := stmt.Exec(
			e.Timestamp,
			e.SessionID,
			e.MemberID,
			e.Turn,
			e.UserMessage,
			e.Intent,
			e.Agent,
			toolsJSON,
			ragJSON,
			e.Response,
			e.LatencyMS,
			e.Sentiment,
		); err != nil {
			w.log.Error("", "", "failed to insert audit entry", map[string]any{"error": err.Error()})
		}
	}

	return tx.Commit()
}

func (w *auditBatchWriter) periodicFlush() {
	for {
		select {
		case <-w.ticker.C:
			w.flush()
		case <-w.done:
			return
		}
	}
}

func (w *auditBatchWriter) stop() {
	w.ticker.Stop()
	close(w.done)
	w.flush()
}

func createAuditTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS turn_audit (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		session_id VARCHAR(64) NOT NULL,
		member_id VARCHAR(64) NOT NULL,
		turn INTEGER NOT NULL,
		user_message TEXT NOT NULL,
		intent VARCHAR(32) NOT NULL,
		agent VARCHAR(64) NOT NULL,
		tools_called JSONB,
		rag_sources JSONB,
		response TEXT,
		latency_ms BIGINT,
		sentiment VARCHAR(32),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_turn_audit_session_id ON turn_audit(session_id);
	CREATE INDEX IF NOT EXISTS idx_turn_audit_member_id ON turn_audit(member_id);
	CREATE INDEX IF NOT EXISTS idx_turn_audit_timestamp ON turn_audit(timestamp);
	`
	_, err := db.Exec(query)
	return err
}
