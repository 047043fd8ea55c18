// Package firestore implements store.ArtifactStore on Cloud Firestore.
//
// Each collection table maps to a Firestore collection of the same name and
// each article to a document whose ID is the article number. Documents carry
// article_text and the same per-kind fields as the SQL schema.
package firestore
