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

package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDoc = `# Auto Policy Guide

## Deductibles and Coverage Limits

Your collision deductible is the amount you pay before coverage applies.
Comprehensive coverage protects against theft, vandalism, hail damage and
other non-collision losses. Liability limits define the maximum payout for
bodily injury and property damage to others.

## Filing a Claim

To file a first notice of loss, report the incident date, location, and a
description of what happened. A claims adjuster will be assigned within one
business day and will contact you directly about next steps and repairs.
`

const testDoc2 = `# Billing Guide

## Premium Payments

Premiums can be paid monthly or every six months. Automatic payments earn a
small discount on the total premium. Late payments may result in a lapse of
coverage, so keep your payment method up to date at all times.
`

func writeTestDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auto_policy.md"), []byte(testDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.md"), []byte(testDoc2), 0o644))
	return dir
}

func TestLoadAndChunkDocuments(t *testing.T) {
	dir := writeTestDocs(t)

	chunks, err := LoadAndChunkDocuments(dir, 500, 100)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	docs := map[string]bool{}
	for _, c := range chunks {
		docs[c.SourceDoc] = true
		assert.NotEmpty(t, c.Text)
	}
	assert.True(t, docs["auto_policy.md"])
	assert.True(t, docs["billing.md"])

	// Section headings survive chunking.
	var headings []string
	for _, c := range chunks {
		headings = append(headings, c.Heading)
	}
	assert.Contains(t, headings, "Filing a Claim")
}

func TestLoadAndChunkDocumentsMissingDir(t *testing.T) {
	_, err := LoadAndChunkDocuments("/nonexistent/docs", 500, 100)
	assert.Error(t, err)
}

func TestSearchRanksRelevantChunks(t *testing.T) {
	dir := writeTestDocs(t)
	chunks, err := LoadAndChunkDocuments(dir, 500, 100)
	require.NoError(t, err)

	r := NewRetriever(4)
	r.Initialize(chunks)
	require.True(t, r.Ready())

	results := r.Search("how do I file a claim after an accident", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "auto_policy.md", results[0].SourceDoc)
	assert.Greater(t, results[0].RelevanceScore, minRelevance)

	// Scores are in descending order.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].RelevanceScore, results[i].RelevanceScore)
	}
}

func TestSearchTopicSeparation(t *testing.T) {
	dir := writeTestDocs(t)
	chunks, err := LoadAndChunkDocuments(dir, 500, 100)
	require.NoError(t, err)

	r := NewRetriever(4)
	r.Initialize(chunks)

	results := r.Search("premium payment discount billing", 1)
	require.NotEmpty(t, results)
	assert.Equal(t, "billing.md", results[0].SourceDoc)
}

func TestSearchUnready(t *testing.T) {
	r := NewRetriever(4)
	assert.Nil(t, r.Search("anything", 3))
	assert.False(t, r.Ready())
}

func TestSearchNoMatchingTerms(t *testing.T) {
	dir := writeTestDocs(t)
	chunks, err := LoadAndChunkDocuments(dir, 500, 100)
	require.NoError(t, err)

	r := NewRetriever(4)
	r.Initialize(chunks)

	assert.Empty(t, r.Search("zzzqqq xyzzy", 3))
	assert.Empty(t, r.Search("", 3))
}

func TestSplitSections(t *testing.T) {
	sections := splitSections(testDoc)
	require.Len(t, sections, 3)

	// The preamble stays its own section and each heading line stays
	// attached to the body that follows it.
	assert.True(t, strings.HasPrefix(sections[0], "# Auto Policy Guide"))
	assert.True(t, strings.HasPrefix(sections[1], "## Deductibles and Coverage Limits"))
	assert.Contains(t, sections[1], "collision deductible")
	assert.True(t, strings.HasPrefix(sections[2], "## Filing a Claim"))
	assert.Contains(t, sections[2], "first notice of loss")
}

func TestSplitSectionsNoHeadings(t *testing.T) {
	doc := "plain text with no markdown headings at all"
	sections := splitSections(doc)
	require.Len(t, sections, 1)
	assert.Equal(t, doc, sections[0])
}

func TestSplitIntoChunksOverlap(t *testing.T) {
	words := make([]string, 120)
	for i := range words {
		words[i] = "w"
	}
	text := ""
	for _, w := range words {
		text += w + " "
	}

	chunks := splitIntoChunks(text, 50, 10)
	require.Len(t, chunks, 3)
}
