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

// Package main is the entry point for the Octank Virtual Agent service.
//
// The Virtual Agent is the conversational front door for Octank
// Insurance members. It:
// - Classifies each member message by intent and sentiment
// - Routes turns to specialist agents with scoped tool access
// - Grounds answers in indexed policy documents
// - Enforces input and output guardrails on every turn
// - Hands escalated conversations to human agents with full context
//
// Usage:
//
//	./virtual-agent
//
// Environment Variables:
//
//	LISTEN_ADDR - HTTP listen address (default: :8080)
//	AWS_REGION - AWS Bedrock region (default: us-east-1)
//	DATABASE_URL - PostgreSQL audit store (optional)
//	REDIS_URL - Redis session store (optional)
package main

import (
	"octank/virtual-agent/orchestrator"
)

func main() {
	orchestrator.Run()
}
