// Package mocks provides hand-written fakes shared by tests across packages.
//
// MockGenerator stands in for generation.Generator and records every request
// it receives. MockArtifactStore is an in-memory store.ArtifactStore keyed by
// table and article number, with call counters so tests can assert that a
// path never touched storage.
//
//	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
//	st := mocks.NewMockArtifactStore()
//	st.AddArticle("codigo_penal", "121", "Matar alguém.")
package mocks
