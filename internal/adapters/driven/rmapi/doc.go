// Package rmapi implements the holdings gateways against the vendor's
// resource management API.
//
// Two families of endpoints are used:
//
//	/{customer}/holdings                          single global snapshot
//	/{customer}/reports/holdings/transactions     named transactions
//	/{customer}/reports/holdings/deltas           diffs between transactions
//
// Every request carries the customer's API key in the x-api-key header and
// passes through a token bucket limiter. A 429 response becomes a
// *RateLimitError; any other non-2xx response becomes an *APIError.
package rmapi
