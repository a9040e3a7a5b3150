package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/service/mcp"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveMCPCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "http",
			Usage:       "Serve streamable HTTP on this address instead of stdio (e.g. 127.0.0.1:8080)",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve-mcp",
		Usage: "Expose instance, snapshot and config operations as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			server := mcp.NewServer(uc.instances, uc.snapshots, uc.configs, Version)

			if addr == "" {
				return server.Run(ctx)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			}()

			logging.From(ctx).Info("serving MCP over HTTP", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "MCP HTTP server failed", goerr.V("addr", addr))
			}
			return nil
		},
	}
}
