// Package domain contains the core business entities and value objects of the
// study-content service: legal-code collections, the kinds of study content
// that can be generated for an article, their payloads, and the cached
// artifacts that tie a payload to one source passage. It is independent of
// any storage engine or AI provider.
package domain
