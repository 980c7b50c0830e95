package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func sheetIDProperty(purpose string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": purpose,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Project
		{
			Name:        "omr_load_project",
			Description: "Open an OMR project file (YAML). The project becomes the target of every other omr_* tool.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the project file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "omr_save_project",
			Description: "Save the open project, including manual overrides and thresholds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional target path. Defaults to the path the project was loaded from",
					},
				},
			},
		},

		{
			Name:        "omr_suggest_markers",
			Description: "Find solid dark squares on a sheet that can serve as registration markers, best first. With apply, the two candidates farthest apart replace the structure's markers and the sheet becomes the reference sheet.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sheet_id": sheetIDProperty("Optional sheet id. Default: the reference sheet"),
					"min_size": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum marker side in pixels. Default: 8",
					},
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum marker side in pixels. Default: 96",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of candidates returned. Default: 10",
						"default":     10,
					},
					"apply": map[string]interface{}{
						"type":        "boolean",
						"description": "Replace the structure's markers with the best pair",
						"default":     false,
					},
				},
			},
		},

		// Analysis
		{
			Name:        "omr_analyze",
			Description: "Locate registration markers, align and sample every sheet, guess thresholds and classify every bubble. Sheets whose cached results are current are not reloaded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"strategy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"per-sheet", "global"},
						"description": "Thresholding strategy. Defaults to the project's setting",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Optional worker count. Default: server setting",
					},
				},
			},
		},
		{
			Name:        "omr_sheet_status",
			Description: "List sheets with their analysis status (not-analyzed, analyzed-with-errors, analyzed), student id and alignment transform.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sheet_id": sheetIDProperty("Optional sheet id. Default: every sheet"),
				},
			},
		},
		{
			Name:        "omr_sheet_answers",
			Description: "Show the chosen alternatives of every question on one sheet together with the answer key, outcome and score. Uncertain bubbles are listed so they can be overridden.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sheet_id": sheetIDProperty("Sheet id"),
				},
				"required": []string{"sheet_id"},
			},
		},
		{
			Name:        "omr_toggle_override",
			Description: "Cycle the manual override of one bubble: auto -> filled -> empty -> auto.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sheet_id": sheetIDProperty("Sheet id"),
					"group": map[string]interface{}{
						"type":        "integer",
						"description": "Question group index, in the order returned by omr_sheet_answers",
					},
					"row": map[string]interface{}{
						"type":        "integer",
						"description": "Bubble row within the group (0-based)",
					},
					"col": map[string]interface{}{
						"type":        "integer",
						"description": "Bubble column within the group (0-based)",
					},
				},
				"required": []string{"sheet_id", "group", "row", "col"},
			},
		},

		// Thresholds
		{
			Name:        "omr_set_thresholds",
			Description: "Set the black and white brightness thresholds, globally or for one sheet, and reclassify. Bubbles darker than black are filled; bubbles at least as bright as white are empty.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"black": map[string]interface{}{
						"type":        "integer",
						"description": "Black threshold (0-255)",
					},
					"white": map[string]interface{}{
						"type":        "integer",
						"description": "White threshold (0-255)",
					},
					"sheet_id": sheetIDProperty("Optional sheet id. Default: the global thresholds"),
				},
				"required": []string{"black", "white"},
			},
		},
		{
			Name:        "omr_guess_thresholds",
			Description: "Derive thresholds from the brightness histogram, globally or for one sheet, and reclassify.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sheet_id": sheetIDProperty("Optional sheet id. Default: the global thresholds"),
				},
			},
		},

		// Results
		{
			Name:        "omr_scores",
			Description: "Score every sheet with the project's grading scheme.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "omr_export",
			Description: "Write answers or results to a file: answers-csv, results-csv, results-xlsx, or a feedback JPEG of one sheet.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"answers-csv", "results-csv", "results-xlsx", "feedback"},
						"description": "Output format",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the file to write",
					},
					"sheet_id": sheetIDProperty("Sheet id, required for feedback"),
					"zoom": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for feedback images. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"format", "path"},
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
