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
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tunable parameters for the virtual agent service.
// Values load from an optional YAML file and can be overridden per field
// via environment variables.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// Bedrock models: a fast/cheap model for classification and
	// briefing, a stronger model for specialist reasoning.
	AWSRegion       string  `yaml:"aws_region"`
	SupervisorModel string  `yaml:"supervisor_model"`
	SpecialistModel string  `yaml:"specialist_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`

	// MaxAgentSteps is the tool-use loop's step budget: the maximum
	// number of model-invocation rounds per turn.
	MaxAgentSteps int `yaml:"max_agent_steps"`

	// SessionTimeoutMinutes is the idle timeout after which a session
	// is evicted lazily on next lookup.
	SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`

	RAGChunkSize    int    `yaml:"rag_chunk_size"`
	RAGChunkOverlap int    `yaml:"rag_chunk_overlap"`
	RAGTopK         int    `yaml:"rag_top_k"`
	DocsDir         string `yaml:"docs_dir"`
	DataDir         string `yaml:"data_dir"`

	// DatabaseURL enables the durable Postgres audit sink when set.
	DatabaseURL string `yaml:"database_url"`

	// RedisURL switches the session store from in-memory to Redis when set.
	RedisURL string `yaml:"redis_url"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:            ":8080",
		AWSRegion:             "us-east-1",
		SupervisorModel:       "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		SpecialistModel:       "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
		MaxTokens:             4096,
		Temperature:           0.1,
		MaxAgentSteps:         5,
		SessionTimeoutMinutes: 30,
		RAGChunkSize:          500,
		RAGChunkOverlap:       100,
		RAGTopK:               4,
		DocsDir:               "data/docs",
		DataDir:               "data",
	}
}

// LoadConfig reads path (when non-empty) over the defaults, then applies
// environment overrides. A missing file is only an error when a path was
// explicitly requested.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.ListenAddr, "LISTEN_ADDR")
	envString(&c.AWSRegion, "AWS_REGION")
	envString(&c.SupervisorModel, "SUPERVISOR_MODEL_ID")
	envString(&c.SpecialistModel, "SPECIALIST_MODEL_ID")
	envInt(&c.MaxTokens, "MAX_TOKENS")
	envFloat(&c.Temperature, "TEMPERATURE")
	envInt(&c.MaxAgentSteps, "MAX_AGENT_STEPS")
	envInt(&c.SessionTimeoutMinutes, "SESSION_TIMEOUT_MINUTES")
	envInt(&c.RAGChunkSize, "RAG_CHUNK_SIZE")
	envInt(&c.RAGChunkOverlap, "RAG_CHUNK_OVERLAP")
	envInt(&c.RAGTopK, "RAG_TOP_K")
	envString(&c.DocsDir, "DOCS_DIR")
	envString(&c.DataDir, "DATA_DIR")
	envString(&c.DatabaseURL, "DATABASE_URL")
	envString(&c.RedisURL, "REDIS_URL")
}

func (c *Config) validate() error {
	if c.MaxAgentSteps < 1 {
		return fmt.Errorf("max_agent_steps must be at least 1, got %d", c.MaxAgentSteps)
	}
	if c.SessionTimeoutMinutes < 1 {
		return fmt.Errorf("session_timeout_minutes must be at least 1, got %d", c.SessionTimeoutMinutes)
	}
	return nil
}

// SessionTimeout returns the idle timeout as a duration.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
