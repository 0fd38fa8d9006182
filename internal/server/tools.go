package server

import (
	"github.com/ironsheep/ecg-tools-mcp/internal/diagnosis"
	"github.com/ironsheep/ecg-tools-mcp/internal/digitize"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the ECG strip image (PNG, JPEG or GIF)",
	}
}

func layoutProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        digitize.LayoutNames(),
		"description": "Lead layout of the strip. Defaults to the configured layout",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "ecg_load",
			Description: "Load an ECG strip image and return its dimensions, format and whether the grid is printed in color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Calibration
		{
			Name:        "ecg_detect_orientation",
			Description: "Estimate the tilt of the strip from its near-horizontal grid lines. Positive angles are counter-clockwise.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_detect_grid",
			Description: "Level the strip and measure the printed millimetre grid. Returns pixels per millimetre on both axes with the autocorrelation evidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_binarize",
			Description: "Level the strip and separate trace ink from grid and paper. Returns the ink mask as base64 PNG, black ink on white.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_edge_map",
			Description: "Return the directional Sobel edge map of the strip as base64 PNG. Horizontal structures are what orientation detection votes with.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"axis": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"horizontal", "vertical", "all"},
						"description": "Which structures to keep. Default horizontal",
						"default":     "horizontal",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Minimum gradient magnitude in luminance units. Defaults to the configured edge threshold",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_grid_overlay",
			Description: "Draw the detected grid over the levelled strip so misregistration with the printed grid is visible.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"spacing_mm": map[string]interface{}{
						"type":        "number",
						"description": "Overlay line spacing in millimetres. Default 5 (large squares)",
						"default":     5.0,
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Line color as #RRGGBB or #RRGGBBAA. Defaults to the configured overlay color",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_crop_lead",
			Description: "Crop one lead's region from the levelled strip and return it as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"lead": map[string]interface{}{
						"type":        "string",
						"description": "Lead name as used by the layout, e.g. II or V2",
					},
					"layout": layoutProperty(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "lead"},
			},
		},

		// Digitizing
		{
			Name:        "ecg_digitize",
			Description: "Convert the strip into calibrated signals: one row of millivolt samples per lead at a fixed sampling rate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"layout": layoutProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_plot_signal",
			Description: "Digitize the strip and plot selected leads against time as base64 PNG. Use it to compare the reconstruction with the paper.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"layout": layoutProperty(),
					"leads": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Leads to plot, top to bottom. Default all leads",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Plot width in pixels. Defaults to the configured width",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Plot height in pixels. Defaults to the configured height",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ecg_read_annotations",
			Description: "Read the paper speed (mm/s) and gain (mm/mV) printed on the strip. Requires a build with Tesseract.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default eng",
						"default":     "eng",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum text region confidence (0-1). Default 0.3",
						"default":     0.3,
					},
				},
				"required": []string{"path"},
			},
		},

		// Diagnosis
		{
			Name:        "ecg_diagnose_stemi",
			Description: "Apply a linear STEMI criterion to risk markers measured from the ECG. Returns myocardial infarction or benign early repolarization with the criterion value.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ste60_v3_mm": map[string]interface{}{
						"type":        "number",
						"description": "ST elevation 60 ms after the J point in V3, in mm",
					},
					"qtc_ms": map[string]interface{}{
						"type":        "number",
						"description": "Heart-rate corrected QT interval in ms",
					},
					"ra_v4_mm": map[string]interface{}{
						"type":        "number",
						"description": "R wave amplitude in V4, in mm",
					},
					"criterion": map[string]interface{}{
						"type":        "string",
						"enum":        diagnosis.CriterionNames(),
						"description": "Criterion preset. Defaults to the configured criterion",
					},
				},
				"required": []string{"ste60_v3_mm", "qtc_ms", "ra_v4_mm"},
			},
		},
		{
			Name:        "ecg_classify",
			Description: "Digitize the strip and run the registered network for one condition. Below the model threshold the diagnosis is unknown.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"layout": layoutProperty(),
					"condition": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"MI", "BER", "STE"},
						"description": "Condition whose model to run",
					},
				},
				"required": []string{"path", "condition"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
