// Package server implements the MCP (Model Context Protocol) server for
// grading bubble answer sheets.
//
// The server exposes an OMR project through JSON-RPC 2.0 tools so a client
// can open a project, run the analysis, review uncertain bubbles, correct
// them, and export the results.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Project:
//   - omr_load_project: Open a project file
//   - omr_save_project: Save thresholds and overrides
//
// Structure:
//   - omr_suggest_markers: Find registration marker candidates on a sheet
//
// Analysis:
//   - omr_analyze: Align, sample and classify every sheet
//   - omr_sheet_status: Analysis status per sheet
//   - omr_sheet_answers: Answers, key and score of one sheet
//   - omr_toggle_override: Cycle a bubble's manual override
//
// Thresholds:
//   - omr_set_thresholds: Set black/white thresholds
//   - omr_guess_thresholds: Derive thresholds from the histogram
//
// Results:
//   - omr_scores: Total score per sheet
//   - omr_export: CSV, XLSX or feedback JPEG
//
// # State
//
// One project is open at a time. Tool calls are serialized and share the
// project together with a cache of decoded pages, so repeated analysis only
// reloads sheets whose cached results are stale.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Options{Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
package server
