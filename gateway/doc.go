// Package gateway provides an authenticated client for chat-style
// completion requests against an LLM backend.
//
// The package has two pieces:
//
//  1. CredentialProvider resolves an access credential through an
//     ordered fallback chain (explicit API key, secret-store secret,
//     identity-service token), caches it, and refreshes identity
//     tokens before they expire.
//
//  2. Client performs blocking (ChatCompletion) and streaming
//     (StreamChatCompletion) completion calls. Every failure is
//     classified into one of the typed Error variants: transient
//     backend failures (429/5xx) are retried with exponential backoff
//     inside an explicit loop; everything else is fatal.
//
// Both types are safe for concurrent use and are ordinarily shared
// across concurrent refinement tasks to amortize connection and token
// setup cost. Callers own the lifetime: construct, pass in, and release
// with Close on every exit path.
package gateway
