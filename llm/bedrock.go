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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"octank/virtual-agent/shared/logger"
)

// BedrockProvider implements ChatProvider for Anthropic-family models on
// AWS Bedrock using AWS SDK v2. Authentication is AWS Signature V4 via
// IAM roles; no API key handling is needed.
type BedrockProvider struct {
	client *bedrockruntime.Client
	region string
	model  string
	log    *logger.Logger
}

// NewBedrockProvider creates a Bedrock-backed provider. Returns an error
// if AWS config loading fails; callers should surface this rather than
// silently falling back.
func NewBedrockProvider(region, model string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", region, err)
	}

	return &BedrockProvider{
		client: bedrockruntime.NewFromConfig(awsCfg),
		region: region,
		model:  model,
		log:    logger.New("llm-bedrock"),
	}, nil
}

func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// Invoke performs one InvokeModel round trip with the Anthropic messages
// wire format, including tool schemas and tool_use/tool_result blocks.
func (p *BedrockProvider) Invoke(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := buildAnthropicBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		p.log.Error("", "", "Bedrock API call failed", map[string]any{"model": model, "error": err.Error()})
		return nil, fmt.Errorf("bedrock API error: %w", err)
	}

	resp, err := parseAnthropicBody(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	resp.Model = model
	resp.Latency = time.Since(start)
	return resp, nil
}

// buildAnthropicBody assembles the Anthropic messages API body used by
// Bedrock for the Claude model family.
func buildAnthropicBody(req ChatRequest) (map[string]any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("request has no messages")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		content := make([]map[string]any, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				content = append(content, map[string]any{"type": "text", "text": b.Text})
			case BlockToolUse:
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    b.ID,
					"name":  b.Name,
					"input": b.Input,
				})
			case BlockToolResult:
				block := map[string]any{
					"type":        "tool_result",
					"tool_use_id": b.ToolUseID,
					"content":     b.Content,
				}
				if b.IsError {
					block["is_error"] = true
				}
				content = append(content, block)
			default:
				return nil, fmt.Errorf("unsupported content block type: %s", b.Type)
			}
		}
		messages = append(messages, map[string]any{"role": string(m.Role), "content": content})
	}

	body := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"temperature":       req.Temperature,
		"messages":          messages,
	}
	if req.System != "" {
		body["system"] = req.System
	}

	if len(req.Tools) > 0 {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.InputSchema,
			})
		}
		body["tools"] = tools

		switch req.ToolChoice {
		case "", ToolChoiceAuto:
			// Model decides.
		default:
			body["tool_choice"] = map[string]any{"type": "tool", "name": req.ToolChoice}
		}
	}

	return body, nil
}

// anthropicResponse mirrors the Anthropic messages API response body.
type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseAnthropicBody(raw []byte) (*ChatResponse, error) {
	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid response body: %w", err)
	}

	resp := &ChatResponse{StopReason: parsed.StopReason}
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
			resp.AssistantContent = append(resp.AssistantContent, ContentBlock{Type: BlockText, Text: block.Text})
		case "tool_use":
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool input for %s: %w", block.Name, err)
				}
			}
			resp.ToolRequests = append(resp.ToolRequests, ToolRequest{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
			resp.AssistantContent = append(resp.AssistantContent, ContentBlock{
				Type:  BlockToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	return resp, nil
}
