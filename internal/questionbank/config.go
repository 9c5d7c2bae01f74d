package questionbank

// Config controls batch sizes and generation limits.
type Config struct {
	// InitialBatchSize is how many questions the first batch asks for.
	InitialBatchSize int `koanf:"initial_batch_size"`

	// ReplenishBatchSize is how many questions each follow-up batch asks for.
	ReplenishBatchSize int `koanf:"replenish_batch_size"`

	// LowWaterMark triggers replenishment when fewer unused questions remain.
	LowWaterMark int `koanf:"low_water_mark"`

	// FallbackCount is the number of placeholders used when a batch fails.
	FallbackCount int `koanf:"fallback_count"`

	// MaxQuestionChars drops generated questions longer than this.
	MaxQuestionChars int `koanf:"max_question_chars"`

	// MaxRecentTurns caps the conversation excerpt sent with follow-up
	// batches.
	MaxRecentTurns int `koanf:"max_recent_turns"`

	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

// DefaultConfig returns the standard batch settings.
func DefaultConfig() Config {
	return Config{
		InitialBatchSize:   20,
		ReplenishBatchSize: 8,
		LowWaterMark:       3,
		FallbackCount:      5,
		MaxQuestionChars:   400,
		MaxRecentTurns:     6,
		MaxTokens:          4096,
		Temperature:        0.7,
	}
}

// NeedsReplenish reports whether the pool has dropped below the low-water
// mark.
func (c Config) NeedsReplenish(pool []Question) bool {
	return Unused(pool) < c.LowWaterMark
}
