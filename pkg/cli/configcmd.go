package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/configdoc"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Import, export and compare gateway configuration documents",
		Commands: []*cli.Command{
			configShowCommand(),
			configExportCommand(),
			configImportCommand(),
			configDiffCommand(),
		},
	}
}

func configShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Print the config captured by the latest snapshot of an instance",
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

			doc, err := uc.configs.Show(ctx, model.RecordID(args[0]))
			if err != nil {
				return goerr.Wrap(err, "failed to show config")
			}
			return writeJSON(c, doc)
		},
	}
}

func configExportCommand() *cli.Command {
	var (
		cfg    config
		format string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (json or yaml)",
			Value:       "json",
			Destination: &format,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "export",
		Usage:     "Compose the configuration document stored under an instance",
		ArgsUsage: "<instance-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "instance-id")
			if err != nil {
				return err
			}
			if format != "json" && format != "yaml" {
				return goerr.Wrap(model.ErrValidation, "unsupported format", goerr.V("format", format))
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			doc, err := uc.configs.Export(ctx, model.RecordID(args[0]))
			if err != nil {
				return goerr.Wrap(err, "failed to export config")
			}
			m, err := doc.ToMap()
			if err != nil {
				return err
			}

			if format == "yaml" {
				raw, err := yaml.Marshal(m)
				if err != nil {
					return goerr.Wrap(err, "failed to encode YAML")
				}
				fmt.Fprint(c.Root().Writer, string(raw))
				return nil
			}
			return writeJSON(c, m)
		},
	}
}

func configImportCommand() *cli.Command {
	var (
		cfg  config
		file string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Configuration document (JSON or YAML)",
			Required:    true,
			Destination: &file,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "import",
		Usage:     "Store a configuration document under an instance, replacing an earlier import",
		ArgsUsage: "<instance-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "instance-id")
			if err != nil {
				return err
			}
			doc, err := configdoc.LoadFromFile(file)
			if err != nil {
				return goerr.Wrap(err, "failed to load config file")
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			result, err := uc.configs.Import(ctx, model.RecordID(args[0]), doc)
			if err != nil {
				return goerr.Wrap(err, "failed to import config")
			}
			fmt.Fprintf(c.Root().Writer, "Imported %d sections (%d replaced)\n", len(result.Created), result.Replaced)
			return nil
		},
	}
}

func configDiffCommand() *cli.Command {
	var (
		cfg   config
		files bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "files",
			Usage:       "Compare two configuration files instead of two snapshots",
			Destination: &files,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare the configs of two snapshots, or two configuration files with --files",
		ArgsUsage: "<a> <b>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "a", "b")
			if err != nil {
				return err
			}

			if files {
				a, err := configdoc.LoadFromFile(args[0])
				if err != nil {
					return err
				}
				b, err := configdoc.LoadFromFile(args[1])
				if err != nil {
					return err
				}
				diff, err := configdoc.Diff(a, b)
				if err != nil {
					return err
				}
				printConfigDiff(c, diff)
				return nil
			}

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			a, err := uc.snapshots.Get(ctx, model.RecordID(args[0]))
			if err != nil {
				return err
			}
			b, err := uc.snapshots.Get(ctx, model.RecordID(args[1]))
			if err != nil {
				return err
			}
			ma, err := model.SnapshotConfig(a)
			if err != nil {
				return err
			}
			mb, err := model.SnapshotConfig(b)
			if err != nil {
				return err
			}
			printConfigDiff(c, model.DiffConfigMaps(ma, mb))
			return nil
		},
	}
}

func printConfigDiff(c *cli.Command, diff *model.ConfigDiff) {
	w := c.Root().Writer
	if diff.IsEmpty() {
		fmt.Fprintf(w, "No differences\n")
		return
	}
	for _, k := range sortedKeys(diff.Added) {
		fmt.Fprintf(w, "+ %s: %v\n", k, diff.Added[k])
	}
	for _, k := range sortedKeys(diff.Removed) {
		fmt.Fprintf(w, "- %s: %v\n", k, diff.Removed[k])
	}
	for _, section := range sortedKeys(diff.Changed) {
		fields := diff.Changed[section]
		for _, f := range sortedKeys(fields) {
			fmt.Fprintf(w, "~ %s.%s: %v -> %v\n", section, f, fields[f].From, fields[f].To)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
