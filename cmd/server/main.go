package main

import (
	"github.com/flowmetrics/semgraph/internal/server"
	"github.com/flowmetrics/semgraph/internal/util"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
