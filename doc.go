// Package sekura is the client-side core of the Sekura mobile security app:
// the session lifecycle, the per-screen asynchronous operation coordinator,
// and a typed client for the remote security-analysis API.
//
// Session lifecycle:
//   - SessionManager owns the in-memory session and its status graph
//     (unresolved, resolving, authenticated, anonymous). Restore reads the
//     persisted credential, Login/Register exchange credentials for a token,
//     Logout clears both memory and storage. Concurrent Restore calls at
//     startup collapse onto a single storage read.
//   - Credentials persist through a CredentialStore. The store subpackage
//     ships an in-memory store, a Bun/sqlite store, and an encrypted file
//     store. Storage failures never surface to callers; the session falls
//     back to anonymous and the user signs in again.
//
// Async operations:
//   - AsyncOperation[T] tracks exactly one in-flight-or-settled remote call
//     per feature screen. Every Run gets a monotonically increasing request
//     id; a result is applied only while its id is still the latest, so a
//     re-triggered scan can never be overwritten by a stale response. The
//     superseded call's context is cancelled.
//
// Navigation:
//   - NavigationGuard consumes the session status and the current
//     navigational area and issues at most one redirect per change. It stays
//     inert until the initial restore settles.
package sekura
