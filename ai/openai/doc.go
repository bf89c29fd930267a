// Package openai provides an ai.Embedder backed by OpenAI-compatible
// embedding APIs (Ollama, vLLM, llama.cpp server, LocalAI, the OpenAI API
// itself). Device binding is expressed as one server endpoint per device;
// each Embedder instance talks to exactly one.
package openai
