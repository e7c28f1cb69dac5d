// Package main hosts the catalog service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server maps GET /getCataloglist, GET /getCatalog, POST /insertCatalog and
//     GET /searchfromURL onto the dispatcher; every other method or path answers the invalid-request body.
//     Probes and /metrics are served by internal/api.AdminServer on a separate port.
//   - Dispatcher: internal/dispatcher wraps each request in a server span, bumps the request counter, emits log
//     records and renders the fixed response bodies. Insert bodies are assembled by internal/accumulator into a
//     bounded buffer before parsing.
//   - Persistence: internal/catalog.FileStore keeps "id,name" lines in an append-only text file and scans it
//     linearly on every read.
//   - Search: internal/search proxies queries to the configured JSON API with a client timeout and an optional
//     per-host rate limit.
//   - Observability: zap logs; OpenTelemetry traces exported over OTLP/gRPC; the request counter and operation
//     metrics are exposed through Prometheus; request log records are batched by internal/logrecord.
//
// Quick checklist:
//   - Configure env vars: CATALOG_SERVER_PORT, CATALOG_CATALOG_PATH, CATALOG_SEARCH_ENDPOINT,
//     OTEL_SERVICE_NAME and OTEL_EXPORTER_OTLP_TRACES_ENDPOINT (or CATALOG_TELEMETRY_EXPORTER=none).
//   - Run locally: go run . serve --config config.yaml
package main

import (
	"github.com/JakeFAU/catalog-service/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
