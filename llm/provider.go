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

import "context"

// ChatProvider is the model-invocation capability consumed by the
// orchestrator. Implementations must be safe for concurrent use.
// The context carries cancellation and timeout; a returned error means
// the model service itself was unreachable or rejected the request,
// not that the model produced an unexpected answer.
type ChatProvider interface {
	// Name returns the provider identifier used in logs and traces.
	Name() string

	// Invoke performs one model round trip.
	Invoke(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
