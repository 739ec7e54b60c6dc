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
Package llm defines the chat-model abstraction used by the virtual
agent and its AWS Bedrock implementation.

# Provider Interface

ChatProvider is the single abstraction the orchestration layer depends
on:

	type ChatProvider interface {
		Name() string
		Invoke(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	}

ChatRequest carries the system prompt, conversation messages, tool
definitions, and an optional forced tool choice. ChatResponse returns
the assistant's text, any tool-use requests, and the raw assistant
content blocks needed to continue a tool-use exchange.

# Bedrock

BedrockProvider implements ChatProvider against the Anthropic messages
API on AWS Bedrock. The service uses two model tiers: a fast model for
intent classification and briefing generation, and a stronger model
for specialist reasoning. Both go through the same provider type with
different model IDs.
*/
package llm
