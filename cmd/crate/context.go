package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"crate/internal/api"
	"crate/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
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
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiBaseURL resolves the daemon address: the --api flag wins, then the
// configured bind address.
func (c *commandContext) apiBaseURL() string {
	if c.apiFlag != nil {
		if base := strings.TrimSpace(*c.apiFlag); base != "" {
			if !strings.Contains(base, "://") {
				base = "http://" + base
			}
			return strings.TrimRight(base, "/")
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if bind := strings.TrimSpace(cfg.Server.Bind); bind != "" {
			return "http://" + bind
		}
	}
	return "http://127.0.0.1:7613"
}

func (c *commandContext) client() *api.Client {
	return api.NewClient(c.apiBaseURL())
}

// wrapClientError adds a startup hint when the daemon is unreachable.
func wrapClientError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%w; is crated running?", err)
	}
	return err
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
