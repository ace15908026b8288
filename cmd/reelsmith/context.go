package main

import (
	"strings"
	"sync"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	addrOnce sync.Once
	addr     string
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

// apiAddr resolves the daemon address: --addr wins, then the configuration
// file, then the built-in default bind. A broken or incomplete config never
// blocks talking to a running daemon.
func (c *commandContext) apiAddr() string {
	c.addrOnce.Do(func() {
		if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
			c.addr = strings.TrimSpace(*c.addrFlag)
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if cfg, _, _, err := config.Load(path); err == nil {
			c.addr = cfg.Paths.APIBind
			return
		}
		c.addr = config.Default().Paths.APIBind
	})
	return c.addr
}

func (c *commandContext) client() *api.Client {
	return api.NewClient(c.apiAddr())
}
