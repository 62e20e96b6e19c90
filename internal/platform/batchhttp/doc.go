// Package batchhttp carries batch.Endpoint over HTTP: Client speaks to a
// remote bulk generation service and NewHandler exposes any Endpoint.
//
// Routes:
//
//	POST /v1/batches       submit a job, returns {"job_id": ...}
//	GET  /v1/batches/{id}  poll a job
package batchhttp
