// Package server implements the MCP (Model Context Protocol) server for ECG
// strip digitizing tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the digitizing
// pipeline and the diagnosis helpers through the MCP protocol, so an
// assistant can calibrate a scanned strip, inspect each stage and read back
// the reconstructed signal.
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
// Image Information:
//   - ecg_load: Load a strip and describe it
//
// Calibration:
//   - ecg_detect_orientation: Skew of the strip
//   - ecg_detect_grid: Pixels per millimetre
//   - ecg_binarize: Trace ink mask
//   - ecg_edge_map: Directional edge map
//   - ecg_grid_overlay: Detected grid drawn over the strip
//   - ecg_crop_lead: One lead's region
//
// Digitizing:
//   - ecg_digitize: Signal matrix in millivolts
//   - ecg_plot_signal: Plot of the reconstructed leads
//   - ecg_read_annotations: Printed paper speed and gain
//
// Diagnosis:
//   - ecg_diagnose_stemi: Linear STEMI criterion over risk markers
//   - ecg_classify: Registered network model for one condition
//
// # Image Caching
//
// Decoded strips are cached by path and reused across tool calls, so
// inspecting the stages of one strip decodes it once.
//
// # Error Handling
//
// Failures are JSON-RPC error responses:
//   - -32602: bad arguments or unknown tool
//   - -32000: the tool failed; data is a ToolErrorData whose kind names the
//     failing stage (image_format, calibration, binarization, extraction) or
//     the missing prerequisite (no_criterion, no_model, ocr_unavailable)
//
// # Usage
//
//	srv, err := server.New(cfg, server.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	return srv.Run()
package server
