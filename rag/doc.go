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
Package rag indexes the policy document library and retrieves relevant
chunks for grounding agent answers.

Documents are markdown files split on section headings into
overlapping word chunks. Retrieval is TF-IDF cosine similarity over
the chunk corpus: small, deterministic, and dependency-free, which is
sufficient for a document library of this size. The index is built
once at startup and is immutable afterward, so searches need only a
read lock.
*/
package rag
