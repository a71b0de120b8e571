// Package server exposes the preference engine over HTTP using Gin behind
// an h2c handler.
//
// # Routes
//
//   - GET    /preferences?resource=       merged preferences for a resource
//   - GET    /preferences/:name?resource= single resolved value with its origin
//   - PUT    /preferences/:name?resource= write {"value": ...}
//   - DELETE /preferences/:name?resource= remove a preference
//   - GET    /domain                      folder URIs the engine serves
//   - GET    /roots, POST /roots, DELETE /roots?uri=
//   - GET    /events?topic=               server-sent change events
//   - GET    /health, /ready, /alive, /version
//
// # Middleware
//
// Applied around the whole mux (server/middleware): panic recovery,
// request ids, CORS, body size limits and request logging.
package server
