// Package platform manages the Instagram account used for posting.
//
// Account caches the login session on disk (mode 0600), verifies a restored
// session before trusting it and falls back to a credential login when the
// session is stale. Uploads and profile picture downloads are retried for
// transient failures only; challenge, credential and rate-limit errors are
// surfaced immediately so an operator can act. The concrete client lives in
// the instagram subpackage behind the Backend interface.
package platform
