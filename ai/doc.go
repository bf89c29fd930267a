// Copyright 2025 Openshelf Labs
//
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


// Package ai defines the embedding engine contract used by the ingestion
// pipeline.
//
// The pipeline treats the embedding model as an external collaborator: a
// device-bound service that maps a batch of texts to an equal-length batch
// of fixed-dimension vectors. Device binding is a construction-time value
// (each engine instance is built against one device's endpoint), never
// ambient process state.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding APIs (Ollama, vLLM, llama.cpp
//     servers and the like), one server instance per device
//   - ai/huggingface: HuggingFace Inference API
//   - ai/mock: deterministic test doubles
//
// Public constructors return the ai.Embedder interface to keep callers
// decoupled from a particular backend; mock constructors return concrete
// types so tests can inject behavior and assert call counts.
package ai
