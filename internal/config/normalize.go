package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeNotebookLM(); err != nil {
		return err
	}
	c.normalizeQuiz()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv("NOTEBOOKLM_CREDENTIALS"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CredentialsPath = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CredentialsPath) == "" {
		c.Paths.CredentialsPath = defaultCredentialsPath
	}
	if c.Paths.CredentialsPath, err = expandPath(c.Paths.CredentialsPath); err != nil {
		return fmt.Errorf("paths.credentials_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("QUIZGEN_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeNotebookLM() error {
	c.NotebookLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.NotebookLM.BaseURL), "/")
	if c.NotebookLM.BaseURL == "" {
		c.NotebookLM.BaseURL = defaultBaseURL
	}
	c.NotebookLM.BuildLabel = strings.TrimSpace(c.NotebookLM.BuildLabel)
	if c.NotebookLM.BuildLabel == "" {
		c.NotebookLM.BuildLabel = defaultBuildLabel
	}
	c.NotebookLM.UserAgent = strings.TrimSpace(c.NotebookLM.UserAgent)
	if c.NotebookLM.UserAgent == "" {
		c.NotebookLM.UserAgent = defaultUserAgent
	}
	if c.NotebookLM.RequestTimeoutSeconds <= 0 {
		c.NotebookLM.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}

	locale := strings.TrimSpace(c.NotebookLM.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("notebooklm.locale: %q is not a valid language tag: %w", locale, err)
	}
	c.NotebookLM.Locale = tag.String()
	return nil
}

func (c *Config) normalizeQuiz() {
	if c.Quiz.QuestionCount <= 0 {
		c.Quiz.QuestionCount = defaultQuestionCount
	}
	if c.Quiz.Difficulty <= 0 {
		c.Quiz.Difficulty = defaultDifficulty
	}
	if c.Quiz.ChatQuestionCount <= 0 {
		c.Quiz.ChatQuestionCount = c.Quiz.QuestionCount
	}
	c.Quiz.ChatLanguage = strings.TrimSpace(c.Quiz.ChatLanguage)
	if c.Quiz.ChatLanguage == "" {
		c.Quiz.ChatLanguage = defaultChatLanguage
	}
	c.Quiz.TitlePrefix = strings.TrimSpace(c.Quiz.TitlePrefix)
	if c.Quiz.TitlePrefix == "" {
		c.Quiz.TitlePrefix = defaultTitlePrefix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
