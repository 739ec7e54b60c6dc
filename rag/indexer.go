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

// Package rag implements the knowledge retrieval capability: markdown
// policy documents are chunked by section and indexed with TF-IDF
// weighting for cosine-similarity search.
package rag

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Chunk is one indexed unit of a policy document.
type Chunk struct {
	Text       string
	SourceDoc  string
	ChunkIndex int
	Heading    string
}

var sectionStart = regexp.MustCompile(`(?m)^##\s`)

// LoadAndChunkDocuments reads every markdown document in dir and splits
// it into overlapping word chunks, section by section.
func LoadAndChunkDocuments(dir string, chunkSize, overlap int) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read docs dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var chunks []Chunk
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		chunkIndex := 0
		for _, section := range splitSections(string(raw)) {
			section = strings.TrimSpace(section)
			if section == "" {
				continue
			}

			heading := extractHeading(section)
			for _, text := range splitIntoChunks(section, chunkSize, overlap) {
				if len(strings.Fields(text)) < 10 {
					continue // skip tiny fragments
				}
				chunks = append(chunks, Chunk{
					Text:       text,
					SourceDoc:  name,
					ChunkIndex: chunkIndex,
					Heading:    heading,
				})
				chunkIndex++
			}
		}
	}

	return chunks, nil
}

// splitSections cuts a markdown document at each "## " heading, keeping
// the heading line with the section that follows it. Text before the
// first heading becomes its own section.
func splitSections(doc string) []string {
	starts := sectionStart.FindAllStringIndex(doc, -1)
	if len(starts) == 0 {
		return []string{doc}
	}

	var sections []string
	if starts[0][0] > 0 {
		sections = append(sections, doc[:starts[0][0]])
	}
	for i, loc := range starts {
		end := len(doc)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		sections = append(sections, doc[loc[0]:end])
	}
	return sections
}

// splitIntoChunks splits text into word-based chunks with overlap.
func splitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	words := strings.Fields(text)
	var chunks []string
	for start := 0; start < len(words); start += chunkSize - overlap {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// extractHeading returns the nearest markdown heading in the chunk text.
func extractHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}
