package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agnosticeng/panicsafe"
	"github.com/agnosticeng/slogcli"
	"github.com/urfave/cli/v2"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/cmd/serve"
)

func main() {
	app := cli.App{
		Name:   "tdengine-mcp",
		Usage:  "MCP server exposing a TDengine database to LLM agents",
		Flags:  slogcli.SlogFlags(),
		Before: slogcli.SlogBefore,
		Commands: []*cli.Command{
			serve.Command(),
		},
	}

	var err = panicsafe.Recover(func() error { return app.Run(os.Args) })

	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		os.Exit(1)
	}
}
