// Command mmserver is the editor-facing backend of spec §2.6: a stdio
// JSON-RPC 2.0 loop wrapping a single internal/coordinator.Coordinator,
// exposing openDatabase, applyMmpEdit, writeDatabase, commitMmpEdit,
// getProofString (requests) and cancel (request or notification). Spec §1
// excludes UI windows, but
// the wire protocol between a UI layer and this backend is squarely in
// scope — this command is that protocol's implementation, grounded on
// cmd/lsp/server.go's stdio framing and dispatch loop.
package main

func main() {
	NewServer(nil).Start()
}
