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

// Package llm provides the unified model-invocation interface and types
// used by the supervisor classifier and the specialist tool-use loop.
// Messages are modeled as ordered content blocks so a single round can
// carry text, tool-use requests, and tool results.
package llm

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Block types within a message.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one unit of message content. Type selects which of the
// remaining fields are meaningful.
type ContentBlock struct {
	Type string `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// BlockToolResult
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is a single conversation entry.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a plain text message for the given role.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// ToolDefinition describes a tool the model may request, in JSON Schema form.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolChoice constraints for a request.
const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto = "auto"
)

// ChatRequest encapsulates one model invocation.
type ChatRequest struct {
	// Model overrides the provider's default model when set.
	Model string

	// System is the system instruction block.
	System string

	// Messages is the ordered conversation history.
	Messages []Message

	// Tools lists the tool schemas available for this invocation.
	Tools []ToolDefinition

	// ToolChoice forces invocation of the named tool when non-empty and
	// not ToolChoiceAuto.
	ToolChoice string

	MaxTokens   int
	Temperature float64
}

// ToolRequest is a single tool invocation requested by the model.
type ToolRequest struct {
	ID    string
	Name  string
	Input map[string]any
}

// ChatResponse is the parsed result of one model invocation.
type ChatResponse struct {
	// Text is the concatenated text content of the response.
	Text string

	// ToolRequests lists tool invocations in the order the model
	// requested them. Empty means the response is final.
	ToolRequests []ToolRequest

	// AssistantContent preserves the raw blocks so callers can append
	// the assistant turn back onto the working history verbatim.
	AssistantContent []ContentBlock

	Model      string
	StopReason string
	Latency    time.Duration
}
