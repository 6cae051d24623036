// Package autoload initialises the global logger from LOG_* environment
// variables when imported for side effects.
package autoload

import (
	configx "github.com/tanpawarit/slide-copilot/pkg/config"
	logx "github.com/tanpawarit/slide-copilot/pkg/logger"
)

func init() {
	conf, err := configx.Process[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
