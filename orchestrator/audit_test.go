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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuditEntry(turn int) AuditEntry {
	return AuditEntry{
		Timestamp:   time.Date(2025, 8, 30, 14, 0, 0, 0, time.UTC),
		SessionID:   "sess_abc123",
		MemberID:    "M1001",
		Turn:        turn,
		UserMessage: "my SSN is [SSN REDACTED]",
		Intent:      "general",
		Agent:       "general_agent",
		ToolsCalled: []string{"search_knowledge_base"},
		Response:    "Here's what I found.",
		LatencyMS:   820,
		Sentiment:   "neutral",
	}
}

func TestBatchWriterWritesInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO turn_audit")
	prep.ExpectExec().
		WithArgs(
			sqlmock.AnyArg(), "sess_abc123", "M1001", 1, "my SSN is [SSN REDACTED]",
			"general", "general_agent", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"Here's what I found.", int64(820), "neutral",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := &auditBatchWriter{db: db, batchSize: 10}
	require.NoError(t, w.write([]AuditEntry{testAuditEntry(1)}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchWriterFlushesAtBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO turn_audit")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	w := &auditBatchWriter{db: db, batchSize: 2, entries: make([]AuditEntry, 0, 2)}
	w.add(testAuditEntry(1))
	w.add(testAuditEntry(2))

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, w.entries)
}

func TestBatchWriterFlushEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	w := &auditBatchWriter{db: db, batchSize: 10}
	w.flush()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopSink(t *testing.T) {
	var sink AuditSink = NopSink{}
	sink.Record(testAuditEntry(1))
	sink.Close()
}
