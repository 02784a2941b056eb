package token

// ModelContextLimits maps model names to their maximum context window
// sizes.
var ModelContextLimits = map[string]int{
	// OpenAI models
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-4-turbo":   128000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,

	// Google Gemini models
	"gemini-2.5-flash": 1000000,
	"gemini-2.5-pro":   1000000,
	"gemini-2.0-flash": 1000000,
	"gemini-1.5-pro":   2000000,
	"gemini-1.5-flash": 1000000,
}

// DefaultContextLimit is used when the model is not recognized.
const DefaultContextLimit = 8192

// Ratios split the model's context window between the fixed system
// instruction, the assembled story context, and the generated reply.
type Ratios struct {
	System   float64
	Context  float64
	Response float64
}

// DefaultRatios leaves most of the window to the story context while
// reserving enough room for a full chapter reply.
var DefaultRatios = Ratios{
	System:   0.05,
	Context:  0.65,
	Response: 0.30,
}

// Allocation is the concrete token allocation for one request.
type Allocation struct {
	System   int
	Context  int
	Response int
	Total    int
}

// Budget checks whether an assembled request fits a model's context
// window.
type Budget struct {
	model     string
	maxTokens int
	ratios    Ratios
}

// NewBudget creates a budget for the specified model, resolving its
// context limit from the known-model table.
func NewBudget(model string) *Budget {
	return &Budget{
		model:     model,
		maxTokens: contextLimit(model),
		ratios:    DefaultRatios,
	}
}

// NewBudgetWithConfig creates a budget with explicit max tokens and
// ratios. Non-positive maxTokens falls back to the model table.
func NewBudgetWithConfig(model string, maxTokens int, ratios Ratios) *Budget {
	if maxTokens <= 0 {
		maxTokens = contextLimit(model)
	}
	return &Budget{
		model:     model,
		maxTokens: maxTokens,
		ratios:    ratios,
	}
}

func contextLimit(model string) int {
	if limit, ok := ModelContextLimits[model]; ok {
		return limit
	}
	return DefaultContextLimit
}

// Allocation returns the token allocations for each category.
func (b *Budget) Allocation() Allocation {
	return Allocation{
		System:   int(float64(b.maxTokens) * b.ratios.System),
		Context:  int(float64(b.maxTokens) * b.ratios.Context),
		Response: int(float64(b.maxTokens) * b.ratios.Response),
		Total:    b.maxTokens,
	}
}

// Fits reports whether a request with the given system and context
// token counts leaves the reserved response room intact.
func (b *Budget) Fits(systemTokens, contextTokens int) bool {
	alloc := b.Allocation()
	return systemTokens+contextTokens <= b.maxTokens-alloc.Response
}

// ContextRoom returns how many context tokens remain after the system
// instruction, never negative.
func (b *Budget) ContextRoom(systemTokens int) int {
	alloc := b.Allocation()
	room := b.maxTokens - alloc.Response - systemTokens
	if room < 0 {
		return 0
	}
	return room
}

// Model returns the model name this budget was configured for.
func (b *Budget) Model() string {
	return b.model
}

// MaxTokens returns the maximum context tokens for this budget.
func (b *Budget) MaxTokens() int {
	return b.maxTokens
}
