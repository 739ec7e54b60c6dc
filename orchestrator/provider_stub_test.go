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
	"sync"

	"octank/virtual-agent/llm"
)

// stubProvider replays a scripted sequence of responses. When the
// script is exhausted it repeats the last entry.
type stubProvider struct {
	mu        sync.Mutex
	responses []stubResponse
	calls     []llm.ChatRequest
}

type stubResponse struct {
	resp *llm.ChatResponse
	err  error
}

func newStubProvider(responses ...stubResponse) *stubProvider {
	return &stubProvider{responses: responses}
}

func textResponse(text string) stubResponse {
	return stubResponse{resp: &llm.ChatResponse{
		Text:             text,
		StopReason:       "end_turn",
		AssistantContent: []llm.ContentBlock{{Type: llm.BlockText, Text: text}},
	}}
}

func toolUseResponse(id, name string, input map[string]any) stubResponse {
	return stubResponse{resp: &llm.ChatResponse{
		StopReason:   "tool_use",
		ToolRequests: []llm.ToolRequest{{ID: id, Name: name, Input: input}},
		AssistantContent: []llm.ContentBlock{
			{Type: llm.BlockToolUse, ID: id, Name: name, Input: input},
		},
	}}
}

func errorResponse(msg string) stubResponse {
	return stubResponse{err: errors.New(msg)}
}

func classifyResponse(intent string, confidence float64, sentiment string) stubResponse {
	input := map[string]any{
		"intent":     intent,
		"confidence": confidence,
		"reasoning":  "scripted",
		"sentiment":  sentiment,
	}
	return stubResponse{resp: &llm.ChatResponse{
		StopReason:   "tool_use",
		ToolRequests: []llm.ToolRequest{{ID: "toolu_classify", Name: classifyToolName, Input: input}},
	}}
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Invoke(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	idx := len(s.calls) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	if idx < 0 {
		return nil, errors.New("stub provider has no scripted responses")
	}
	r := s.responses[idx]
	return r.resp, r.err
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
