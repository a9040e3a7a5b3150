package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/instance"
	"github.com/urfave/cli/v3"
)

func registerCommand() *cli.Command {
	var (
		cfg   config
		title string
		token string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Display name of the instance (defaults to the URL)",
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Bearer token sent when connecting",
			Sources:     cli.EnvVars("OPENCLAW_GATEWAY_TOKEN"),
			Destination: &token,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "register",
		Usage:     "Register a gateway instance",
		ArgsUsage: "<url>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			url := c.Args().First()
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			rec, err := uc.instances.Register(ctx, title, url, token)
			if err != nil {
				return goerr.Wrap(err, "failed to register instance")
			}

			fmt.Fprintf(c.Root().Writer, "Instance registered: %s\n", rec.ID)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List registered instances",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			list, err := uc.instances.List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list instances")
			}

			if len(list) == 0 {
				fmt.Fprintf(c.Root().Writer, "No instances registered\n")
				return nil
			}
			for _, rec := range list {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\n",
					rec.ID, rec.Title, rec.String("url"), rec.String("status"))
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show an instance",
		ArgsUsage: "<instance-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "instance-id")
			if err != nil {
				return err
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			rec, err := uc.instances.Get(ctx, model.RecordID(args[0]))
			if err != nil {
				return err
			}
			out := rec.Clone()
			if _, ok := out.Fields["devicePrivateKey"]; ok {
				out.Fields["devicePrivateKey"] = "(hidden)"
			}
			return writeJSON(c, out)
		},
	}
}

func removeCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove an instance",
		ArgsUsage: "<instance-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "instance-id")
			if err != nil {
				return err
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			if err := uc.instances.Remove(ctx, model.RecordID(args[0])); err != nil {
				return goerr.Wrap(err, "failed to remove instance")
			}

			fmt.Fprintf(c.Root().Writer, "Instance removed: %s\n", args[0])
			return nil
		},
	}
}

func pingCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "ping",
		Usage:     "Check that an instance accepts connections and record its latency",
		ArgsUsage: "<instance-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "instance-id")
			if err != nil {
				return err
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			s := startSpinner(c, "Pinging "+args[0])
			latency, err := uc.instances.Ping(ctx, model.RecordID(args[0]))
			s.Stop()
			if err != nil {
				return goerr.Wrap(err, "ping failed")
			}

			rec, err := uc.instances.Get(ctx, model.RecordID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "%s: %s (%dms)\n", rec.Title, rec.String("status"), latency.Milliseconds())
			return nil
		},
	}
}

func identityCommand() *cli.Command {
	var (
		cfg     config
		keyFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "key-file",
			Usage:       "PEM encoded RSA private key to attach (a new key is generated when omitted)",
			Destination: &keyFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "identity",
		Usage:     "Attach a device identity used to sign gateway challenges",
		ArgsUsage: "<instance-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "instance-id")
			if err != nil {
				return err
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			id := model.RecordID(args[0])

			var ident *instance.Identity
			if keyFile != "" {
				pemText, err := os.ReadFile(keyFile)
				if err != nil {
					return goerr.Wrap(model.ErrValidation, "failed to read key file",
						goerr.V("path", keyFile), goerr.V("error", err.Error()))
				}
				ident, err = uc.instances.AttachIdentity(ctx, id, string(pemText))
				if err != nil {
					return goerr.Wrap(err, "failed to attach identity")
				}
			} else {
				ident, err = uc.instances.GenerateIdentity(ctx, id)
				if err != nil {
					return goerr.Wrap(err, "failed to generate identity")
				}
			}

			fmt.Fprintf(c.Root().Writer, "Device identity attached: %s\n", ident.DeviceID)
			return nil
		},
	}
}
