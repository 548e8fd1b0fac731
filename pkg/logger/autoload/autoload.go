// Package autoload initialises the global logger from LOG_* environment
// variables when blank-imported.
package autoload

import (
	configx "github.com/tanpawarit/chative-crm-assistant/pkg/config"
	logx "github.com/tanpawarit/chative-crm-assistant/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
