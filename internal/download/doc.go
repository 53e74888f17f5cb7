// Package download drives episode transfers: it resolves premium links
// through the unrestrict service, invokes yt-dlp against ranked mirror
// lists with bounded retries, hands every successful transfer to the
// language verifier, and falls back to a dedicated VOE attempt when the
// normal path is exhausted. The orchestrator owns mirror iteration and
// cleanup; the fetcher owns tool invocation and progress parsing.
package download
