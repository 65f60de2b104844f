// Package ratelimit shapes outbound Google API traffic.
//
// Limiters hands out one token bucket per account so a busy account cannot
// drain another's quota. Transport is an http.RoundTripper that waits on the
// account's bucket before each attempt and retries throttled or failed
// requests with exponential backoff, honouring Retry-After.
package ratelimit
