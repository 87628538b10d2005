package codec

// #region method-names
const (
	inferenceService = "preintel.v1.Inference"
	guardrailService = "preintel.v1.Guardrail"

	methodEmbed    = "/" + inferenceService + "/Embed"
	methodGenerate = "/" + inferenceService + "/Generate"
	methodSearch   = "/" + inferenceService + "/Search"
	methodCheck    = "/" + guardrailService + "/Check"
)

// #endregion method-names

// #region types
// GenerateRequest is the payload of a Generate call.
type GenerateRequest struct {
	Prompt    string
	Context   string
	Decision  string // routing decision that selected this call
	MaxTokens int
}

// GenerateResult holds the response from a Generate RPC call.
type GenerateResult struct {
	Text         string
	Data         map[string]any
	OutputTokens int
	ModelAlias   string
	ModelBase    string
	ModelHash    string
}

// SearchResult holds a single result from a Search RPC call.
type SearchResult struct {
	ID           string
	Text         string
	Score        float32
	MetadataJSON string
}

// CheckResult is the guardrail verdict returned by Check.
type CheckResult struct {
	Blocked        bool
	RulesTriggered []string
	Version        string
}

// #endregion types
