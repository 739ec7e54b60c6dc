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
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "octank-virtual-agent",
		"rag_ready": knowledgeRetriever.Ready(),
	})
}

// documentHandler serves raw policy documents for the knowledge base
// viewer. Only .md files inside the docs directory are reachable.
func documentHandler(w http.ResponseWriter, r *http.Request) {
	docName := mux.Vars(r)["doc_name"]

	if filepath.Base(docName) != docName || !strings.HasSuffix(docName, ".md") {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	content, err := os.ReadFile(filepath.Join(appConfig.DocsDir, docName))
	if err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"doc_name": docName,
		"content":  string(content),
	})
}

func membersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"members": memberDirectory.List(),
	})
}

type startSessionRequest struct {
	MemberID string `json:"member_id"`
}

func startSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := turnOrchestrator.StartSession(req.MemberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			writeError(w, http.StatusNotFound, "Member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.SessionID,
		"member": map[string]any{
			"member_id":     session.Member.MemberID,
			"name":          session.Member.Name,
			"policy_number": session.Member.PolicyNumber,
			"policy_type":   session.Member.PolicyType,
		},
	})
}

func getSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := loadSession(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     session.SessionID,
		"member":         session.Member,
		"created_at":     session.CreatedAt,
		"turn_count":     session.TurnCount,
		"current_intent": session.CurrentIntent,
		"current_agent":  session.CurrentAgent,
		"escalated":      session.Escalated,
		"messages":       session.Messages,
	})
}

func sessionAuditHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := loadSession(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.SessionID,
		"audit_log":  session.AuditLog,
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := turnOrchestrator.ProcessTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "Message cannot be empty")
		case errors.Is(err, ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "Session not found or expired")
		default:
			log.Printf("turn processing failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func agentDesktopHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := loadSession(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, desktopAssembler.Assemble(r.Context(), session))
}

func analyticsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, liveAnalytics.Snapshot(len(sessionStore.List())))
}

func reviewQueueHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := loadSession(w, r)
	if !ok {
		return
	}

	items := session.ReviewQueue
	if items == nil {
		items = []ReviewItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.SessionID,
		"items":      items,
	})
}

func loadSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, err := sessionStore.Get(mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found or expired")
		return nil, false
	}
	return session, true
}

// =============================================================================
// WebSocket Event Feed
// =============================================================================

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is already open for the API; mirror that here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sessionEventsHandler streams per-turn progress events (processing
// started, intent classified, response ready) to the member's browser
// while a turn is in flight.
func sessionEventsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := eventBus.Subscribe(sessionID, 32)
	defer eventBus.Unsubscribe(sessionID, events)

	// Reader loop detects client disconnects; inbound frames are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
