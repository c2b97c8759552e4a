// Package http provides the HTTP transport used by the DonorPerfect connector.
//
// Structure:
//
//	client.go - rate-limited GET client with gzip decoding and status checks
package http
