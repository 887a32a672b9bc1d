// Package llm provides a provider-neutral chat completion interface for the
// classification and trade intelligence stages. It supports OpenAI-compatible
// endpoints (Groq by default, OpenAI) and Anthropic, with request rate limiting
// and detection of unavailable models so callers can fall back to another one.
package llm
