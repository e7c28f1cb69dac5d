// Package api hosts the catalog HTTP surface and the admin listener.
//
// Catalog routes:
//   - GET /getCataloglist returns the whole catalog file.
//   - GET /getCatalog?id=X returns the first matching line.
//   - POST /insertCatalog appends "id=<id>&catalogname=<name>".
//   - GET /searchfromURL?q=X proxies the query to the search API.
//
// Every other method or path answers "Error: Invalid request." with status
// 200. Health probes and Prometheus metrics live on the admin listener so
// they never shadow that contract.
package api
