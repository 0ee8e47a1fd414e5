package feedback

// Feedback is an LLM-written narrative of a finished test.
type Feedback struct {
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	NextSteps []string `json:"next_steps"`
}

// DomainScore is the learner's accuracy in one item domain.
type DomainScore struct {
	Domain  string
	Correct int
	Total   int
}

// Input holds the finalized scores the narrative is written from.
type Input struct {
	Theta          float64
	SE             float64
	Level          int
	Band           string
	Lexile         int
	ARLevel        float64
	VocabularySize int // 0 when not estimated
	Accuracy       float64
	Domains        []DomainScore
}

// Config holds generation settings.
type Config struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns sensible defaults for feedback generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0.4,
	}
}
