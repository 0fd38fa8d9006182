// Package config loads the ECG tools configuration.
//
// Values come from three layers, later ones winning:
//
//  1. Built-in defaults (Default)
//  2. A YAML file: $ECG_MCP_CONFIG, or ./ecg-mcp.yaml when present
//  3. Environment variables prefixed ECG_MCP_, with dots replaced by
//     underscores: extract.sampling_rate is ECG_MCP_EXTRACT_SAMPLING_RATE
//
// A loaded Config is validated with struct tags and converted to pipeline
// options with PipelineOptions.
package config
