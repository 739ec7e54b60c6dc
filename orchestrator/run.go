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
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"octank/virtual-agent/llm"
	"octank/virtual-agent/rag"
)

// Service components, wired once at startup.
var (
	appConfig          Config
	memberDirectory    *MemberDirectory
	claimsStore        *ClaimsStore
	knowledgeRetriever *rag.Retriever
	sessionStore       SessionStore
	turnOrchestrator   *Orchestrator
	desktopAssembler   *DesktopAssembler
	liveAnalytics      *Analytics
	eventBus           *EventBus
	auditSink          AuditSink
)

// Run is the exported entry point for the virtual agent service.
//
// It loads configuration, builds the knowledge index, wires the turn
// pipeline, registers HTTP routes, and serves until SIGINT/SIGTERM.
//
// Environment variables used:
//   - LISTEN_ADDR: HTTP listen address (default :8080)
//   - AWS_REGION: Bedrock region
//   - DATABASE_URL: Postgres audit store (optional)
//   - REDIS_URL: Redis session store (optional)
func Run() {
	log.Println("Starting Octank Virtual Agent...")

	if err := initializeComponents(); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer auditSink.Close()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    appConfig.ListenAddr,
		Handler: c.Handler(newRouter()),
	}

	go func() {
		log.Printf("Octank Virtual Agent listening on %s", appConfig.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// newRouter registers every API route against the wired components.
func newRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/api/docs/{doc_name}", documentHandler).Methods("GET")
	r.HandleFunc("/api/members", membersHandler).Methods("GET")

	r.HandleFunc("/api/session/start", startSessionHandler).Methods("POST")
	r.HandleFunc("/api/session/{session_id}", getSessionHandler).Methods("GET")
	r.HandleFunc("/api/session/{session_id}/audit", sessionAuditHandler).Methods("GET")

	r.HandleFunc("/api/chat", chatHandler).Methods("POST")

	r.HandleFunc("/api/agent-desktop/{session_id}", agentDesktopHandler).Methods("GET")
	r.HandleFunc("/api/analytics", analyticsHandler).Methods("GET")
	r.HandleFunc("/api/review-queue/{session_id}", reviewQueueHandler).Methods("GET")

	r.HandleFunc("/ws/{session_id}", sessionEventsHandler).Methods("GET")

	return r
}

func initializeComponents() error {
	cfg, err := LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	appConfig = cfg

	memberDirectory, err = LoadMemberDirectory(cfg.DataDir)
	if err != nil {
		return err
	}
	claimsStore, err = LoadClaimsStore(cfg.DataDir)
	if err != nil {
		return err
	}

	chunks, err := rag.LoadAndChunkDocuments(cfg.DocsDir, cfg.RAGChunkSize, cfg.RAGChunkOverlap)
	if err != nil {
		return err
	}
	knowledgeRetriever = rag.NewRetriever(cfg.RAGTopK)
	knowledgeRetriever.Initialize(chunks)
	log.Printf("knowledge index ready: %d chunks", knowledgeRetriever.ChunkCount())

	supervisorProvider, err := llm.NewBedrockProvider(cfg.AWSRegion, cfg.SupervisorModel)
	if err != nil {
		return err
	}
	specialistProvider, err := llm.NewBedrockProvider(cfg.AWSRegion, cfg.SpecialistModel)
	if err != nil {
		return err
	}

	if cfg.RedisURL != "" {
		store, err := NewRedisStore(cfg.RedisURL, memberDirectory, cfg.SessionTimeout())
		if err != nil {
			return err
		}
		sessionStore = store
		log.Println("session store: redis")
	} else {
		sessionStore = NewMemoryStore(memberDirectory, cfg.SessionTimeout())
		log.Println("session store: in-memory")
	}

	if cfg.DatabaseURL != "" {
		sink, err := NewPostgresSink(cfg.DatabaseURL)
		if err != nil {
			log.Printf("audit database unavailable, falling back to session-local audit: %v", err)
			auditSink = NopSink{}
		} else {
			auditSink = sink
			log.Println("audit sink: postgres")
		}
	} else {
		auditSink = NopSink{}
	}

	registry := NewToolRegistry(memberDirectory, claimsStore, knowledgeRetriever, cfg.RAGTopK)
	liveAnalytics = NewAnalytics()
	eventBus = NewEventBus()

	turnOrchestrator = NewOrchestrator(
		sessionStore,
		NewSupervisor(supervisorProvider, cfg.SupervisorModel),
		NewAgentLoop(specialistProvider, registry, &cfg),
		registry,
		NewGuardrailFilter(),
		liveAnalytics,
		auditSink,
		eventBus,
	)
	desktopAssembler = NewDesktopAssembler(supervisorProvider, knowledgeRetriever, cfg.SupervisorModel)

	return nil
}
