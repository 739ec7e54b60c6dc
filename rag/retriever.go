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
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// minRelevance drops results whose cosine score falls below this floor.
const minRelevance = 0.05

// Result is one ranked retrieval hit.
type Result struct {
	ChunkText      string  `json:"chunk_text"`
	SourceDoc      string  `json:"source_doc"`
	Heading        string  `json:"heading"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Retriever holds a TF-IDF index over document chunks. Safe for
// concurrent search once initialized.
type Retriever struct {
	mu      sync.RWMutex
	chunks  []Chunk
	vectors []map[string]float64
	norms   []float64
	idf     map[string]float64
	topK    int
	ready   bool
}

// NewRetriever builds an empty retriever with the given default top-k.
func NewRetriever(topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{topK: topK, idf: make(map[string]float64)}
}

// Initialize indexes the given chunks, replacing any prior index.
func (r *Retriever) Initialize(chunks []Chunk) {
	docFreq := make(map[string]int)
	termCounts := make([]map[string]int, len(chunks))

	for i, c := range chunks {
		counts := make(map[string]int)
		for _, term := range tokenize(c.Text) {
			counts[term]++
		}
		termCounts[i] = counts
		for term := range counts {
			docFreq[term]++
		}
	}

	n := float64(len(chunks))
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log((1+n)/(1+float64(df))) + 1
	}

	vectors := make([]map[string]float64, len(chunks))
	norms := make([]float64, len(chunks))
	for i, counts := range termCounts {
		vec := make(map[string]float64, len(counts))
		var sumSquares float64
		for term, count := range counts {
			w := float64(count) * idf[term]
			vec[term] = w
			sumSquares += w * w
		}
		vectors[i] = vec
		norms[i] = math.Sqrt(sumSquares)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = chunks
	r.vectors = vectors
	r.norms = norms
	r.idf = idf
	r.ready = len(chunks) > 0
}

// Ready reports whether the index has been built.
func (r *Retriever) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// ChunkCount returns the number of indexed chunks.
func (r *Retriever) ChunkCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks)
}

// Search returns the top-k chunks ranked by cosine similarity to the
// query. k <= 0 uses the retriever default.
func (r *Retriever) Search(query string, k int) []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.ready {
		return nil
	}
	if k <= 0 {
		k = r.topK
	}

	queryCounts := make(map[string]int)
	for _, term := range tokenize(query) {
		queryCounts[term]++
	}
	if len(queryCounts) == 0 {
		return nil
	}

	queryVec := make(map[string]float64, len(queryCounts))
	var querySumSquares float64
	for term, count := range queryCounts {
		idf, ok := r.idf[term]
		if !ok {
			continue
		}
		w := float64(count) * idf
		queryVec[term] = w
		querySumSquares += w * w
	}
	queryNorm := math.Sqrt(querySumSquares)
	if queryNorm == 0 {
		return nil
	}

	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, 0, len(r.chunks))
	for i, vec := range r.vectors {
		if r.norms[i] == 0 {
			continue
		}
		var dot float64
		for term, qw := range queryVec {
			if dw, ok := vec[term]; ok {
				dot += qw * dw
			}
		}
		score := dot / (queryNorm * r.norms[i])
		if score >= minRelevance {
			scores = append(scores, scored{index: i, score: score})
		}
	}

	sort.Slice(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	if len(scores) > k {
		scores = scores[:k]
	}

	results := make([]Result, 0, len(scores))
	for _, s := range scores {
		c := r.chunks[s.index]
		results = append(results, Result{
			ChunkText:      c.Text,
			SourceDoc:      c.SourceDoc,
			Heading:        c.Heading,
			ChunkIndex:     c.ChunkIndex,
			RelevanceScore: math.Round(s.score*1000) / 1000,
		})
	}
	return results
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopwords is a compact English stopword set; enough to keep policy
// boilerplate from dominating the index.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "if": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}

func tokenize(text string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, skip := stopwords[t]; skip {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}
