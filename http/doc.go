// Package http exposes the storage gateway over HTTP.
//
// # Routes
//
//	GET  /healthz                                   liveness probe
//	GET  /metrics                                   Prometheus scrape endpoint (optional)
//	GET  /api/storage/blob/{container}/{object...}  issue a write grant
//	POST /api/storage/upload?containerName=         multipart upload of the "file" part
//	POST /api/storage/customer/save                 insert a customer record
//	GET  /api/storage/customer/{partition}/{row}    read a customer record back
//	PUT  /objects/{container}/{object...}           redeem a signed write grant
//	GET  /objects/{container}/{object...}           redeem a signed read grant
//
// An upload is stored under the objectName query parameter when present,
// otherwise under the part's raw file name, directories included.
//
// The /objects routes exist only when a RequestVerifier is configured, which
// is the case for the filesystem object store. Cloud backends hand out
// provider-native URIs and never route grant traffic through the gateway.
//
// # Errors
//
// Every failure is written as JSON:
//
//	{"error": "container_not_found", "message": "..."}
//
// The error code is storegate.ErrorKind of the returned error. Messages of
// server-side failures are replaced with a fixed text; the cause is logged.
//
// # Example
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    MaxUploadSize: 64 << 20,
//	    Metrics:       metrics.Handler(prometheus.DefaultGatherer),
//	}, service)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
package http
