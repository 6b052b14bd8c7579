package config

const (
	defaultStateDir              = "~/.local/share/quizgen"
	defaultLogDirName            = "logs"
	defaultCredentialsPath       = "~/.notebooklm-mcp/auth.json"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultBaseURL               = "https://notebooklm.google.com"
	defaultBuildLabel            = "boq_labs-tailwind-frontend_20260129.10_p0"
	defaultLocale                = "en"
	defaultUserAgent             = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	defaultRequestTimeoutSeconds = 60
	defaultQuestionCount         = 5
	defaultDifficulty            = 2
	defaultChatQuestionCount     = 5
	defaultChatLanguage          = "Vietnamese"
	defaultTitlePrefix           = "Gen Quiz"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:        defaultStateDir,
			CredentialsPath: defaultCredentialsPath,
			APIBind:         defaultAPIBind,
		},
		NotebookLM: NotebookLM{
			BaseURL:               defaultBaseURL,
			BuildLabel:            defaultBuildLabel,
			Locale:                defaultLocale,
			UserAgent:             defaultUserAgent,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Quiz: Quiz{
			QuestionCount:     defaultQuestionCount,
			Difficulty:        defaultDifficulty,
			ChatQuestionCount: defaultChatQuestionCount,
			ChatLanguage:      defaultChatLanguage,
			TitlePrefix:       defaultTitlePrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
