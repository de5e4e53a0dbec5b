// Package api contains tests that run against a real backend server.
//
// These tests require the backend server to be running before execution.
// They cover every endpoint the HTTP API exposes.
//
// Usage:
//
//	# Start the backend server first
//	go run cmd/server/main.go
//
//	# Then run the API tests
//	go test -tags=api ./tests/api/... -v
//
// Environment Variables:
//
//	API_BASE_URL - Base URL of the API server (default: http://localhost:8080)
//	API_TOKEN    - Bearer token for authentication; when unset a token is
//	               signed locally with JWT_SECRET
//	JWT_SECRET   - Signing secret used to mint a test token when API_TOKEN
//	               is not provided
package api
