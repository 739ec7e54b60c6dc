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
	"regexp"
	"strings"
)

// PIICategory labels a class of personally identifiable information.
// Detection reports categories only; matched values never leave the
// redaction path.
type PIICategory string

const (
	PIITypeSSN   PIICategory = "SSN"
	PIITypePhone PIICategory = "Phone Number"
	PIITypeEmail PIICategory = "Email"
	PIITypeCard  PIICategory = "Credit Card"
)

// piiPattern pairs a compiled pattern with its category and the fixed
// placeholder used when redacting for logs.
type piiPattern struct {
	category    PIICategory
	pattern     *regexp.Regexp
	placeholder string
}

// Ordered: SSN patterns run before the phone pattern so a dashed SSN is
// not mistaken for a phone number.
var piiPatterns = []piiPattern{
	{PIITypeSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN REDACTED]"},
	{PIITypeSSN, regexp.MustCompile(`\b\d{9}\b`), "[SSN REDACTED]"},
	{PIITypePhone, regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), "[PHONE REDACTED]"},
	{PIITypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL REDACTED]"},
	{PIITypeCard, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[CARD REDACTED]"},
}

// blockedTopicPattern maps a keyword pattern to the advice topic it flags.
type blockedTopicPattern struct {
	pattern *regexp.Regexp
	topic   string
}

var blockedTopicPatterns = []blockedTopicPattern{
	{regexp.MustCompile(`\b(should i see a doctor|medical treatment|diagnosis|prescription|medication|what medicine|neck pain|take for my)\b`), "medical_advice"},
	{regexp.MustCompile(`\b(sue|lawsuit|attorney|lawyer|legal action)\b`), "legal_advice"},
	{regexp.MustCompile(`\b(invest|stock|portfolio|financial advisor)\b`), "investment_advice"},
	{regexp.MustCompile(`\b(tax deduction|tax advice|write off|tax return)\b`), "tax_advice"},
}

// BlockedTopicMessage is the fixed redirect returned for blocked topics.
const BlockedTopicMessage = "I understand your concern, but I'm not able to provide medical, legal, tax, " +
	"or investment advice. For those matters, I'd recommend consulting with " +
	"a qualified professional. Is there anything else related to your " +
	"Octank Insurance policy that I can help with?"

// hedgingSignals are low-confidence phrases scanned for in responses.
var hedgingSignals = []string{
	"i'm not sure but",
	"i think it might be",
	"i believe it could be",
	"this is just my guess",
	"i'm making an assumption",
}

const (
	// validResponseThreshold: below this the response is marked invalid.
	validResponseThreshold = 0.5
	// reviewQueueThreshold: below this the turn is queued for human review.
	reviewQueueThreshold = 0.7
	// signalPenalty is the confidence cost per hedging signal found.
	signalPenalty = 0.2
)

// GuardrailFilter provides the stateless pre/post turn checks. The zero
// value is usable; New exists for symmetry with the other components.
type GuardrailFilter struct{}

// NewGuardrailFilter returns a ready filter.
func NewGuardrailFilter() *GuardrailFilter {
	return &GuardrailFilter{}
}

// DetectPII returns the categories of PII present in text, each at most
// once, in pattern order. Matched values are not returned.
func (g *GuardrailFilter) DetectPII(text string) []PIICategory {
	var found []PIICategory
	seen := make(map[PIICategory]bool)
	for _, p := range piiPatterns {
		if seen[p.category] {
			continue
		}
		if p.pattern.MatchString(text) {
			found = append(found, p.category)
			seen[p.category] = true
		}
	}
	return found
}

// RedactPII replaces PII spans with fixed category placeholders. Used
// only when writing audit copies, never on the live member response.
func (g *GuardrailFilter) RedactPII(text string) string {
	redacted := text
	for _, p := range piiPatterns {
		redacted = p.pattern.ReplaceAllString(redacted, p.placeholder)
	}
	return redacted
}

// CheckBlockedTopics reports whether the message asks for out-of-scope
// advice. A hit short-circuits the entire turn with the fixed redirect.
func (g *GuardrailFilter) CheckBlockedTopics(message string) (blocked bool, topic string) {
	lower := strings.ToLower(message)
	for _, bt := range blockedTopicPatterns {
		if bt.pattern.MatchString(lower) {
			return true, bt.topic
		}
	}
	return false, ""
}

// ValidateResponse scores the specialist's final text for hedging
// signals. confidence = max(0, 1 - 0.2 * signals); valid iff >= 0.5.
// Annotation only: the response is never blocked by this check.
func (g *GuardrailFilter) ValidateResponse(responseText string) (valid bool, confidence float64) {
	lower := strings.ToLower(responseText)
	signals := 0
	for _, s := range hedgingSignals {
		if strings.Contains(lower, s) {
			signals++
		}
	}

	confidence = 1.0 - signalPenalty*float64(signals)
	if confidence < 0 {
		confidence = 0
	}
	return confidence >= validResponseThreshold, confidence
}

// NeedsReview reports whether a post-check confidence is low enough to
// queue the turn for human review.
func (g *GuardrailFilter) NeedsReview(confidence float64) bool {
	return confidence < reviewQueueThreshold
}
