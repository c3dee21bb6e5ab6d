// Package ddbui serves a local HTTP API for inspecting and editing the
// records of an in-memory ddbstore.Store while developing against it.
//
// Endpoints:
//
//	GET    /api/table                  table layout and record count
//	GET    /api/items?limit=&cursor=   scan in key order
//	POST   /api/items                  put a record ({"item": {...}, "requireAbsent": true})
//	DELETE /api/items                  drop every record
//	GET    /api/items/{pk}/{sk}        get one record
//	DELETE /api/items/{pk}/{sk}        delete one record (?requireExists=true)
//	POST   /api/query                  query a partition
//	POST   /api/gsi/{gsi}/query        query a partition of an index
//
// The server is started by `ddb serve`, see cmd/ddb.
package ddbui
