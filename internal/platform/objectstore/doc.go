// Package objectstore keeps checkpoint entries and the batch job handle in
// an S3-compatible bucket through minio-go. Each completed unit is a
// separate object, so concurrent lanes never rewrite shared state.
package objectstore
