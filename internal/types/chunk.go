package types

import "encoding/json"

// Chunk is a unit of previously indexed document text returned by similarity search.
// Chunks are owned by the retrieval layer and treated as read-only here.
type Chunk struct {
	ID             int64           `json:"id" validate:"required"`
	TextContent    string          `json:"text_content"`
	Similarity     float64         `json:"similarity"`
	SourceMetadata json.RawMessage `json:"source_metadata,omitempty"`
}

// Source returns the "source" entry of the chunk metadata, or "Unknown source".
func (c Chunk) Source() string {
	if len(c.SourceMetadata) == 0 {
		return "Unknown source"
	}
	var meta struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(c.SourceMetadata, &meta); err != nil || meta.Source == "" {
		return "Unknown source"
	}
	return meta.Source
}
