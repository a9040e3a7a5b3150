package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/urfave/cli/v3"
)

// liveListCommand builds agents, channels and models commands, which call
// <name>.list on a connected instance and print the items
func liveListCommand(name, usage string) *cli.Command {
	var cfg config
	method := name + ".list"

	return &cli.Command{
		Name:      name,
		Usage:     usage,
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
			id := model.RecordID(args[0])

			sess, err := uc.instances.Connect(ctx, id)
			if err != nil {
				return goerr.Wrap(err, "failed to connect")
			}
			defer func() { _ = uc.instances.Disconnect(ctx, id) }()

			if !sess.Authenticated() {
				return goerr.Wrap(model.ErrProtocol, "gateway closed the connection before authentication",
					goerr.V("instance_id", id))
			}

			items, err := sess.ListItems(ctx, method)
			if err != nil {
				return goerr.Wrap(err, "failed to list "+name)
			}

			if len(items) == 0 {
				fmt.Fprintf(c.Root().Writer, "No %s\n", name)
				return nil
			}
			for _, item := range items {
				fmt.Fprintln(c.Root().Writer, itemLabel(item))
			}
			return nil
		},
	}
}

// itemLabel prints the name (or id) of an item, or its JSON when it has neither
func itemLabel(item any) string {
	if m, ok := item.(map[string]any); ok {
		for _, k := range []string{"name", "id"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := item.(string); ok {
		return s
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprint(item)
	}
	return string(raw)
}
