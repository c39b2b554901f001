// Package testing groups test support packages.
//
//   - stubapi: a programmable HTTP API for exercising providers end to end
//   - containers: Docker-backed services for tests under the integration tag
package testing
