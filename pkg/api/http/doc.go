// Package http provides the REST API server for run submission, status
// queries, report retrieval, and cancellation, plus the /health and
// /metrics endpoints.
package http
