// Package store holds the transition journal backends: memory, postgres and firestore.
package store
