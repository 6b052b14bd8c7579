package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateNotebookLM(); err != nil {
		return err
	}
	if err := c.validateQuiz(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotebookLM() error {
	parsed, err := url.Parse(c.NotebookLM.BaseURL)
	if err != nil {
		return fmt.Errorf("notebooklm.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("notebooklm.base_url must use http or https, got %q", c.NotebookLM.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("notebooklm.base_url must include a host, got %q", c.NotebookLM.BaseURL)
	}
	if c.NotebookLM.RequestTimeoutSeconds > 600 {
		return errors.New("notebooklm.request_timeout_seconds must not exceed 600")
	}
	return nil
}

func (c *Config) validateQuiz() error {
	if c.Quiz.QuestionCount > 50 {
		return errors.New("quiz.question_count must be between 1 and 50")
	}
	if c.Quiz.ChatQuestionCount > 50 {
		return errors.New("quiz.chat_question_count must be between 1 and 50")
	}
	if c.Quiz.Difficulty > 3 {
		return errors.New("quiz.difficulty must be 1 (easy), 2 (medium), or 3 (hard)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
