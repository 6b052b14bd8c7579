package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"quizgen/internal/api"
	"quizgen/internal/config"
	"quizgen/internal/jobs"
	"quizgen/internal/logging"
	"quizgen/internal/services/notebooklm"
	"quizgen/internal/services/notebooklm/session"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// newClient loads the credential bundle and builds a NotebookLM client.
func (c *commandContext) newClient() (*notebooklm.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()
	storeOpts := []session.Option{
		session.WithBaseURL(cfg.NotebookLM.BaseURL),
		session.WithUserAgent(cfg.NotebookLM.UserAgent),
		session.WithLogger(logger),
		session.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
	}
	clientOpts := []notebooklm.Option{
		notebooklm.WithBuildLabel(cfg.NotebookLM.BuildLabel),
		notebooklm.WithLocale(cfg.NotebookLM.Locale),
		notebooklm.WithTimeout(cfg.RequestTimeout()),
		notebooklm.WithLogger(logger),
		notebooklm.WithQuizOptions(cfg.Quiz.QuestionCount, cfg.Quiz.Difficulty),
		notebooklm.WithChatOptions(cfg.Quiz.ChatQuestionCount, cfg.Quiz.ChatLanguage),
	}
	store, err := session.Load(cfg.Paths.CredentialsPath, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return notebooklm.New(store, clientOpts...), nil
}

func (c *commandContext) openJobs() (*jobs.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job ledger: %w", err)
	}
	return store, nil
}

// newQuizService wires the client and the job ledger the same way serve does.
// The returned cleanup closes the ledger.
func (c *commandContext) newQuizService() (*api.QuizService, func(), error) {
	client, err := c.newClient()
	if err != nil {
		return nil, nil, err
	}
	ledger, err := c.openJobs()
	if err != nil {
		return nil, nil, err
	}
	cfg := c.configValue()
	svc := api.NewQuizService(client,
		api.WithLedger(ledger),
		api.WithSessionReporter(client.Session()),
		api.WithTitlePrefix(cfg.Quiz.TitlePrefix),
		api.WithServiceLogger(c.log()),
	)
	return svc, func() { _ = ledger.Close() }, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
