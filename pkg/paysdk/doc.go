/*
Package paysdk implements the client-side gateway for the TabPay payment
platform.

# Overview

Every outbound call is gated behind a valid credential and a freshly loaded
remote configuration. The Client multiplexes plain REST GET/POST and GraphQL
POST requests through one transport and layers a latency/usage analytics
pipeline over every call.

	client := paysdk.NewClient(authorization,
		paysdk.WithReturnURLScheme("com.example.shop"))

	body, err := client.Get(ctx, "/v1/payment_methods")

# Authorization

A Client is constructed from a raw credential string, which parses into one
of three variants:

  - TokenizationKey: a static merchant-scoped key (`sandbox_abc123_merchant`)
  - ClientToken: a JWT minted by the merchant's server, carrying the
    configuration URL and an authorization fingerprint
  - InvalidAuthorization: anything else

Parsing never fails; an invalid credential produces a Client whose gated
operations all return ErrAuthorizationRequired without performing any I/O.

# Configuration

The remote configuration is requested on demand per call, never pre-fetched.
The default CachedLoader memoizes it per credential and coalesces concurrent
fetches, so in-flight chains share one request. A call that cannot obtain
configuration fails; the SDK never proceeds without it, and never falls back
to a stale value once the loader has reported an error.

# Dispatch protocol

Each of Get, Post and GraphQLPost follows the same shape: check the
credential, load configuration, delegate to the transport, validate that the
response body decodes, emit exactly one analytics timing event, and return
the body. Exactly one of the returned body and error is non-nil, for every
path through the protocol. Failures are surfaced once and never retried.

# Analytics

Timing events carry a normalized endpoint label: merchant-identifying path
segments are stripped so aggregated metrics group by logical endpoint.
GraphQL calls are labeled with a fragment of their query text instead, since
there is only one GraphQL URL. Analytics is strictly best effort; a failure
to obtain configuration while emitting drops the event silently and never
fails the business operation that triggered it.

The AnalyticsTransport collaborator owns delivery. The default in-process
implementation lives in internal/analytics: events are persisted to a local
SQLite store and flushed in rate-limited batches to the configuration's
analytics URL.

# Concurrency

A Client is safe for concurrent use. Each call runs as one sequential chain;
the SDK owns no goroutines on the dispatch path. Callers that want
fire-and-forget semantics wrap calls in their own goroutine.
*/
package paysdk
