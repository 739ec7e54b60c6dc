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

	"github.com/stretchr/testify/assert"
)

func TestDetectPII(t *testing.T) {
	g := NewGuardrailFilter()

	tests := []struct {
		name string
		text string
		want []PIICategory
	}{
		{"clean text", "What is my collision deductible?", nil},
		{"dashed ssn", "my SSN is 123-45-6789", []PIICategory{PIITypeSSN}},
		{"bare ssn digits", "ssn 123456789 on file", []PIICategory{PIITypeSSN}},
		{"phone", "call me at 555-867-5309", []PIICategory{PIITypePhone}},
		{"email", "send it to sarah.chen@example.com please", []PIICategory{PIITypeEmail}},
		{"credit card", "charge 4111 1111 1111 1111", []PIICategory{PIITypeCard}},
		{"ssn and email", "123-45-6789 and me@example.com", []PIICategory{PIITypeSSN, PIITypeEmail}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.DetectPII(tt.text))
		})
	}
}

func TestDetectPIIReportsCategoryOnce(t *testing.T) {
	g := NewGuardrailFilter()

	found := g.DetectPII("123-45-6789 and also 987-65-4321")

	assert.Equal(t, []PIICategory{PIITypeSSN}, found)
}

func TestRedactPII(t *testing.T) {
	g := NewGuardrailFilter()

	redacted := g.RedactPII("my SSN is 123-45-6789, email sarah@example.com")

	assert.Equal(t, "my SSN is [SSN REDACTED], email [EMAIL REDACTED]", redacted)
}

func TestRedactPIIPrefersSSNOverPhone(t *testing.T) {
	g := NewGuardrailFilter()

	// A dashed SSN also matches the phone shape; the SSN pattern runs first.
	redacted := g.RedactPII("123-45-6789")

	assert.Equal(t, "[SSN REDACTED]", redacted)
}

func TestCheckBlockedTopics(t *testing.T) {
	g := NewGuardrailFilter()

	tests := []struct {
		name    string
		message string
		blocked bool
		topic   string
	}{
		{"legal", "Should I sue the other driver?", true, "legal_advice"},
		{"legal uppercase", "DO I NEED A LAWYER?", true, "legal_advice"},
		{"medical", "Should I see a doctor about my neck?", true, "medical_advice"},
		{"investment", "Should I invest my settlement?", true, "investment_advice"},
		{"tax", "Can I claim this as a tax deduction?", true, "tax_advice"},
		{"in scope", "What does my policy cover?", false, ""},
		{"claim is not legal action", "I want to file a claim", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, topic := g.CheckBlockedTopics(tt.message)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.topic, topic)
		})
	}
}

func TestValidateResponse(t *testing.T) {
	g := NewGuardrailFilter()

	tests := []struct {
		name       string
		text       string
		valid      bool
		confidence float64
	}{
		{"confident", "Your collision deductible is $500.", true, 1.0},
		{"one hedge", "I'm not sure but your deductible may be $500.", true, 0.8},
		{"two hedges", "I'm not sure but I think it might be $500.", true, 0.6},
		{
			"three hedges",
			"I'm not sure but I think it might be $500, this is just my guess.",
			false,
			0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, confidence := g.ValidateResponse(tt.text)
			assert.Equal(t, tt.valid, valid)
			assert.InDelta(t, tt.confidence, confidence, 0.001)
		})
	}
}

func TestValidateResponseConfidenceFloor(t *testing.T) {
	g := NewGuardrailFilter()

	text := "i'm not sure but i think it might be, i believe it could be, " +
		"this is just my guess, i'm making an assumption"
	valid, confidence := g.ValidateResponse(text)

	assert.False(t, valid)
	assert.GreaterOrEqual(t, confidence, 0.0)
}

func TestNeedsReview(t *testing.T) {
	g := NewGuardrailFilter()

	assert.True(t, g.NeedsReview(0.6))
	assert.True(t, g.NeedsReview(0.69))
	assert.False(t, g.NeedsReview(0.7))
	assert.False(t, g.NeedsReview(1.0))
}
