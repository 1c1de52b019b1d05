// Package api implements the HTTP REST API and WebSocket event stream for
// the project management backend.
//
// This package provides:
//   - REST endpoints for authors, evaluators, projects, evaluations,
//     statuses, schedules, and prizes
//   - Stateless JWT authentication (login, register, refresh)
//   - WebSocket hub for real-time entity change broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Security
//
// Authentication is a two-stage pipeline. A non-rejecting middleware runs on
// every request: it extracts the bearer token if one is present and attaches
// a Principal to the request context, but never rejects. The route gate
// (requireAuth) then responds 401 on protected routes when no Principal was
// attached. Login, register, refresh, and health are the only routes that
// need no credential at all.
//
// WebSocket upgrades cannot carry a bearer header from a browser, so they
// authenticate with a single-use ticket instead: an authenticated client
// requests one from POST /auth/ws-ticket and passes it as a query parameter
// when dialing GET /ws.
package api
