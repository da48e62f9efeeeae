// Package oura implements driven.SampleFetcher against the Oura v2 REST API.
//
// Requests share one token-bucket RateLimiter. Failures are classified onto
// the domain errors the scheduler understands:
//
//   - 401 wraps domain.ErrAuth (the scheduler force-refreshes once)
//   - 429, 5xx and network failures wrap domain.ErrTransient
//   - other 4xx and undecodable payloads wrap domain.ErrPermanent
package oura
