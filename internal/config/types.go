package config

// ProviderType identifies a reasoning or embedding provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// TicketingMode selects where work orders are opened.
type TicketingMode string

const (
	// TicketingLocal stores work orders in the local database.
	TicketingLocal TicketingMode = "local"
	// TicketingHTTP forwards work orders to an external ticketing API.
	TicketingHTTP TicketingMode = "http"
)

// Config is the top-level agrodesk configuration, corresponding to
// .agrodesk.yml.
type Config struct {
	Provider          ProviderType    `yaml:"provider" koanf:"provider"`
	Model             string          `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string          `yaml:"embedding_model" koanf:"embedding_model"`
	KnowledgeDir      string          `yaml:"knowledge_dir" koanf:"knowledge_dir"`
	IndexDir          string          `yaml:"index_dir" koanf:"index_dir"`
	DatabasePath      string          `yaml:"database_path" koanf:"database_path"`
	RetrievalTopK     int             `yaml:"retrieval_top_k" koanf:"retrieval_top_k"`
	Server            ServerConfig    `yaml:"server" koanf:"server"`
	Ticketing         TicketingConfig `yaml:"ticketing" koanf:"ticketing"`
	Channels          ChannelsConfig  `yaml:"channels" koanf:"channels"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host" koanf:"host"`
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// TicketingConfig holds work-order routing settings. BaseURL and APIKey
// apply only in http mode.
type TicketingConfig struct {
	Mode    TicketingMode `yaml:"mode" koanf:"mode"`
	BaseURL string        `yaml:"base_url" koanf:"base_url"`
	APIKey  string        `yaml:"api_key" koanf:"api_key"`
}

// ChannelsConfig holds inbound chat channel credentials.
type ChannelsConfig struct {
	SlackSigningSecret string `yaml:"slack_signing_secret" koanf:"slack_signing_secret"`
	WebhookToken       string `yaml:"webhook_token" koanf:"webhook_token"`
}
