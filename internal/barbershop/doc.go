// Package barbershop is the HTTP client for the barbershop queue backend.
//
// Public endpoints (queue preview, join, leave, position) need no credentials.
// Staff endpoints (all queues, serve) send a bearer token; a 401 triggers one
// token refresh through /auth/refresh when a refresh token is configured, and
// the request is retried once with the new token.
//
// Every request carries an X-Request-ID taken from the context (see
// logging.WithRequestID) or freshly generated, so backend logs can be
// correlated with barberq logs.
package barbershop
