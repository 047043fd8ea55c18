// Package generation defines the boundary between the study-content pipeline
// and external AI/LLM services. It owns the Generator interface, the prompt
// templates for each content kind, the strict parser that turns provider text
// into validated payloads, and the error taxonomy callers use to distinguish
// rate limiting, exhausted quota, provider outages and malformed output.
package generation
