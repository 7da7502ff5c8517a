// Package cache is the agent's cache strategy router.
//
// Router is an http.RoundTripper that classifies GET requests against an
// ordered rule table (first match wins) and answers them with one of three
// strategies:
//
//   - network-first: fetch, store on success, fall back to the stored entry
//     only when the network fails.
//   - cache-first: answer from the region when possible, never touching the
//     network for a hit.
//   - stale-while-revalidate: answer from the region and always refresh it
//     with exactly one background fetch.
//
// Each rule names a region. Regions are independent partitions of a Backend,
// keyed by "METHOD URL". Unmatched requests pass through untouched.
package cache
