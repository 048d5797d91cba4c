// Package autoload configures the global logger from the environment as an
// import side effect.
package autoload

import (
	configx "github.com/tanpawarit/cesto-mcp-server/pkg/config"
	logx "github.com/tanpawarit/cesto-mcp-server/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
