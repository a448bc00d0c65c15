package mcptools

import "github.com/dusk-indust/pdferret/internal/doc"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ExtractFileInput is the input for the extract_file MCP tool.
type ExtractFileInput struct {
	Path        string `json:"path" jsonschema:"absolute path of the file to extract"`
	Lang        string `json:"lang,omitempty" jsonschema:"processing language, en or de (default: en)"`
	TextModel   string `json:"text_model,omitempty" jsonschema:"text model for metadata and summary extraction (default: configured model)"`
	VisionModel string `json:"vision_model,omitempty" jsonschema:"vision model for page descriptions (default: configured model)"`
}

// ExtractFileOutput is the result of the extract_file MCP tool. Thumbnails
// and chunk images are elided to keep the payload textual.
type ExtractFileOutput struct {
	Document *doc.Document `json:"document"`
	Error    string        `json:"error,omitempty"`
}

// ListPipelinesInput is the input for the list_pipelines MCP tool.
type ListPipelinesInput struct{}

// ListPipelinesOutput maps each supported file extension to the ordered
// stage names of its pipeline.
type ListPipelinesOutput struct {
	Extensions map[string][]string `json:"extensions"`
}
