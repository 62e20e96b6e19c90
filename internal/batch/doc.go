// Package batch submits work units to an asynchronous bulk generation
// endpoint, persists the job handle so a restarted run can reattach, and
// polls the job until it reaches a terminal status.
//
// LocalEndpoint is an in-process endpoint backed by a generation.Generator;
// the batchhttp package exposes any Endpoint over HTTP and provides the
// matching client.
package batch
