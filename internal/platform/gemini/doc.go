// Package gemini provides an implementation of the generation.Generator interface
// that uses Google's Gemini API for generating study content from article text.
//
// This package is an infrastructure adapter: it renders the prompt for the
// requested content kind, performs exactly one GenerateContent call with the
// kind's fixed sampling parameters, extracts the first candidate's text and
// hands it to generation.Parse. Provider failures are translated into the
// generation package's error taxonomy:
//
//   - HTTP 429 becomes generation.ErrRateLimited
//   - HTTP 402 becomes generation.ErrQuotaExceeded
//   - any other API or transport failure becomes generation.ErrProviderUnavailable
//   - safety blocks become generation.ErrContentBlocked
//
// There is no retry loop; a failed call is surfaced to the caller immediately.
package gemini
