package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/catalog"
	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/mcpserver"
	"github.com/GHOST-LOVE-YOU/tdengine-mcp/internal/taos"
)

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "taos-url", Value: "http://127.0.0.1:6041", EnvVars: []string{"TDENGINE_URL"}, Usage: "TDengine REST endpoint"},
	&cli.StringFlag{Name: "taos-username", Value: "root", EnvVars: []string{"TDENGINE_USERNAME"}},
	&cli.StringFlag{Name: "taos-password", Value: "taosdata", EnvVars: []string{"TDENGINE_PASSWORD"}},
	&cli.StringFlag{Name: "taos-database", Value: "default", EnvVars: []string{"TDENGINE_DATABASE"}},
	&cli.IntFlag{Name: "taos-timeout", Value: 30, EnvVars: []string{"TDENGINE_TIMEOUT"}, Usage: "connection timeout in seconds"},
	&cli.StringFlag{Name: "transport", Value: "sse", EnvVars: []string{"TRANSPORT"}, Usage: "sse or stdio"},
	&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"MCP_HOST"}},
	&cli.IntFlag{Name: "port", Value: 8000, EnvVars: []string{"MCP_PORT"}},
}

func Command() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			var (
				logger = slogctx.FromCtx(ctx.Context)
				conf   = taos.Config{
					URL:      ctx.String("taos-url"),
					Username: ctx.String("taos-username"),
					Password: ctx.String("taos-password"),
					Database: ctx.String("taos-database"),
					Timeout:  time.Duration(ctx.Int("taos-timeout")) * time.Second,
				}
			)

			client, err := taos.NewClient(ctx.Context, conf)

			if err != nil {
				return err
			}

			var srv = mcpserver.New(catalog.New(client))

			switch transport := ctx.String("transport"); transport {
			case "stdio":
				logger.Info("server started", "transport", "stdio")
				return server.ServeStdio(srv)

			case "sse":
				var (
					addr = fmt.Sprintf("%s:%d", ctx.String("host"), ctx.Int("port"))
					sse  = server.NewSSEServer(srv)
				)

				sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
				defer stop()

				group, groupctx := errgroup.WithContext(sigctx)

				group.Go(func() error {
					logger.Info("server started", "transport", "sse", "addr", addr)

					if err := sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}

					return nil
				})

				group.Go(func() error {
					<-groupctx.Done()

					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()

					return sse.Shutdown(shutdownCtx)
				})

				return group.Wait()

			default:
				return fmt.Errorf("unknown transport: %s", transport)
			}
		},
	}
}
