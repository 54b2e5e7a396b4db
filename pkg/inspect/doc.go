// Package inspect exposes a store over HTTP for tooling: read the tree or
// any field as JSON, write fields, apply RFC 7386 merge patches, and
// stream change notifications over a WebSocket.
//
// The inspector is a debugging and tooling surface for a single process.
// It is not a persistence layer and not a store synchronization protocol.
//
// Routes:
//
//	GET    /healthz        liveness probe
//	GET    /state          whole tree
//	PATCH  /state          JSON merge patch, applied as a top-level update
//	GET    /state/{path}   one field ({path} uses / between keys)
//	POST   /state/{path}   set one field to the JSON request body
//	DELETE /state/{path}   reset one field to its initial value
//	GET    /watch          WebSocket change stream (query: path, expr)
package inspect
