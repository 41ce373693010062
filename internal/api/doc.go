// Package api serves the bridge's read-only HTTP status API.
//
// Routes (all under /api/v1):
//
//	GET /health                                 bridge health and uptime
//	GET /cores                                  connected Cores with session counters
//	GET /cores/{core}/components                components and control names on a Core
//	GET /cores/{core}/components/{component}    controls with cached feedback
//	GET /devices                                configured devices and their state
//	GET /history/{component}/{control}?limit=N  recorded feedback, newest first
//
// The server follows the same lifecycle as the other components:
//
//	srv, err := api.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
//
// Thread Safety: All methods are safe for concurrent use.
package api
