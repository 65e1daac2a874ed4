// Package api defines the JSON wire types of the catalog HTTP API and
// a client for them. The server renders these types; the CLI consumes
// them through Client.
package api
