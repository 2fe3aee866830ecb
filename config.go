package recipeagent

type ModelConfig struct {
	ModelID      string  `env:"MODEL_ID,required"`
	EmbedModelID string  `env:"EMBED_MODEL_ID,default=nomic-embed-text"`
	MaxTokens    int32   `env:"MAX_TOKENS,default=2048"`
	Temperature  float32 `env:"TEMPERATURE,default=0.7"`
	TopP         float32 `env:"TOP_P,default=0.9"`
}

type AgentConfig struct {
	PantryPath         string `env:"PANTRY_PATH,default=artifacts/pantry.json"`
	CorpusPath         string `env:"CORPUS_PATH,default=artifacts/cookbook.json"`
	CheckpointPath     string `env:"CHECKPOINT_PATH,default=artifacts/checkpoints"`
	BaseOllamaEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MaxRegenerations   int    `env:"MAX_REGENERATIONS,default=3"`
	ExhaustionPolicy   string `env:"EXHAUSTION_POLICY,default=force"`
	SlackWebhookURL    string `env:"SLACK_WEBHOOK_URL,default="`
	SlackChannel       string `env:"SLACK_CHANNEL,default=#cooking"`
	Debug              bool   `env:"DEBUG,default=false"`
}
