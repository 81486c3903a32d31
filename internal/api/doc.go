// Package api exposes the HTTP surface of the ChainEcho daemon: submitting
// thread tasks, querying their status, and reading aggregate statistics.
package api
