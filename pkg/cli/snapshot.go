package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/urfave/cli/v3"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Capture and inspect point-in-time snapshots",
		Commands: []*cli.Command{
			snapshotCaptureCommand(),
			snapshotListCommand(),
			snapshotHistoryCommand(),
			snapshotDiffCommand(),
			snapshotDeleteCommand(),
		},
	}
}

func snapshotCaptureCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "capture",
		Usage:     "Fetch the present state of an instance and store it as a snapshot",
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

			s := startSpinner(c, "Capturing "+args[0])
			rec, err := uc.snapshots.CaptureLive(ctx, model.RecordID(args[0]))
			s.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to capture snapshot")
			}

			fmt.Fprintf(c.Root().Writer, "Snapshot captured: %s (agents=%d channels=%d models=%d)\n",
				rec.ID, rec.Int("agentCount"), rec.Int("channelCount"), rec.Int("modelCount"))
			return nil
		},
	}
}

func printSnapshots(c *cli.Command, list []*model.Record) {
	if len(list) == 0 {
		fmt.Fprintf(c.Root().Writer, "No snapshots\n")
		return
	}
	for _, rec := range list {
		fmt.Fprintf(c.Root().Writer, "%s\t%s\tagents=%d channels=%d models=%d\n",
			rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05.000"),
			rec.Int("agentCount"), rec.Int("channelCount"), rec.Int("modelCount"))
	}
}

func snapshotListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "list",
		Usage:     "List snapshots of an instance, newest first",
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

			list, err := uc.snapshots.List(ctx, model.RecordID(args[0]))
			if err != nil {
				return goerr.Wrap(err, "failed to list snapshots")
			}
			printSnapshots(c, list)
			return nil
		},
	}
}

func snapshotHistoryCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "history",
		Usage:     "Show the snapshot chain of an instance, newest first",
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

			list, err := uc.snapshots.History(ctx, model.RecordID(args[0]))
			if err != nil {
				return goerr.Wrap(err, "failed to read snapshot history")
			}
			printSnapshots(c, list)
			return nil
		},
	}
}

func snapshotDiffCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "diff",
		Usage:     "Show the fields that differ between two snapshots",
		ArgsUsage: "<snapshot-id> <snapshot-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "snapshot-a", "snapshot-b")
			if err != nil {
				return err
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			diff, err := uc.snapshots.Compare(ctx, model.RecordID(args[0]), model.RecordID(args[1]))
			if err != nil {
				return goerr.Wrap(err, "failed to compare snapshots")
			}
			printFieldDiff(c, diff)
			return nil
		},
	}
}

func printFieldDiff(c *cli.Command, diff map[string]model.FieldDiff) {
	if len(diff) == 0 {
		fmt.Fprintf(c.Root().Writer, "No differences\n")
		return
	}
	keys := make([]string, 0, len(diff))
	for k := range diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.Root().Writer, "%s: %v -> %v\n", k, diff[k].From, diff[k].To)
	}
}

func snapshotDeleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a snapshot",
		ArgsUsage: "<snapshot-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			args, err := requireArgs(c, "snapshot-id")
			if err != nil {
				return err
			}
			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}

			if err := uc.snapshots.Delete(ctx, model.RecordID(args[0])); err != nil {
				return goerr.Wrap(err, "failed to delete snapshot")
			}
			fmt.Fprintf(c.Root().Writer, "Snapshot deleted: %s\n", args[0])
			return nil
		},
	}
}
