package loam

// HeaderType marks the document that names the flow and its start block.
const HeaderType = "flow"

// BlockMetadata is the frontmatter of one document in a flow directory.
// A message block may carry its text in the document body instead of "text".
type BlockMetadata struct {
	ID   string `json:"id" mapstructure:"id"`
	Type string `json:"type" mapstructure:"type"`

	// Message blocks
	Text string `json:"text" mapstructure:"text"`
	Next string `json:"next" mapstructure:"next"`

	// Intent detection blocks
	Intents  []string          `json:"intents" mapstructure:"intents"`
	Mappings map[string]string `json:"mappings" mapstructure:"mappings"`
	Fallback string            `json:"fallback" mapstructure:"fallback"`

	// Header document
	FlowID string `json:"flow_id" mapstructure:"flow_id"`
	Start  string `json:"start" mapstructure:"start"`
}
