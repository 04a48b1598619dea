// Package store ships the CredentialStore implementations: an in-memory
// store for tests and previews, a Bun/sqlite store, and an encrypted
// file store for platforms without a database.
package store
