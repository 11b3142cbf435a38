package consts

const (
	// Tools the advisor may call
	SearchBondsTool = "search_bonds"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

const (
	DefaultAdvisorModel = "gpt-4-turbo-preview"
	DefaultSearchModel  = "gpt-4.1-mini"

	DefaultDeepSeekModel = "deepseek-chat"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const Version = "v0.3.0"
