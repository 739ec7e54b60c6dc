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

/*
Package orchestrator implements the turn-processing pipeline of the
Octank Virtual Agent and its HTTP API.

# Overview

Each member message is processed as one turn through a fixed pipeline:

 1. Input guardrails: PII detection and blocked-topic screening. A
    blocked topic short-circuits the turn with a fixed redirect.
 2. Supervisor classification: deterministic keyword rules first, then
    a fast Bedrock model, producing intent, confidence, and sentiment.
 3. Routing: the intent selects a specialist agent with a scoped set
    of tools, or escalates directly to a human hand-off.
 4. Agent loop: the specialist model runs a bounded tool-use loop,
    executing tools and feeding results back until it produces a final
    text answer or exhausts its step budget.
 5. Output guardrails: the answer is scored for hedging language; low
    confidence queues the turn for human review but never blocks it.
 6. Bookkeeping: session state, audit log, analytics counters, and
    progress events for the member's browser.

# Components

The pipeline is assembled from small single-purpose components:
Supervisor (classification), ToolRegistry and AgentLoop (tool use),
GuardrailFilter (input/output checks), SessionStore (in-memory or
Redis), AuditSink (session-local or Postgres), Analytics (counters and
the dashboard snapshot), EventBus (per-session progress events), and
DesktopAssembler (the human agent hand-off briefing).

Run wires everything from configuration and serves the HTTP API.
*/
package orchestrator
