// Package debrid wraps the Real-Debrid REST API for link unrestriction.
//
// The client resolves hoster links into direct download URLs, verifies the
// resolved URL actually answers before handing it out, and retries
// overload responses with exponential backoff. A file the service reports
// as unavailable is a permanent failure; callers demote those links to
// direct download instead of retrying.
//
// All requests pass through a shared rate limiter so batch workloads stay
// under the service's request budget.
package debrid
