// Command crate is the command-line client for the crated daemon. It
// uploads audio files, browses the catalog, and drives reconciliation
// over the daemon's HTTP API.
package main
