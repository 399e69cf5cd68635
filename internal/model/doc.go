// Package model adapts chat-completion endpoints to agent.Model.
//
// OpenAI speaks the OpenAI chat-completions protocol, which most hosted
// inference routers (Hugging Face, OpenRouter, vLLM, Ollama) also accept.
// Operation results are sent back as tool messages keyed by the invocation
// id, so the endpoint must support function calling.
package model
