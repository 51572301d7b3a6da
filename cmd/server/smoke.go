package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/pairroom-server/internal/client"
	"github.com/vovakirdan/pairroom-server/internal/ot"
)

type smokeOptions struct {
	url     string
	timeout time.Duration
	retries uint64
}

func newSmokeCmd(root *rootOptions) *cobra.Command {
	opts := &smokeOptions{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Pair two clients against a running server and check they converge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.url == "" {
				cfg, err := loadConfig(root)
				if err != nil {
					return err
				}
				opts.url = wsURL(cfg.Addr)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return runSmoke(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "WebSocket URL (defaults to the configured listen address)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "overall deadline")
	cmd.Flags().Uint64Var(&opts.retries, "retries", 3, "dial retries while the server starts")
	return cmd
}

func wsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "ws://" + addr + "/ws"
}

type smokeStep struct {
	name string
	run  func(context.Context) error
}

func runSmoke(ctx context.Context, opts *smokeOptions) error {
	var host, guest *client.Client
	var code string
	var guestID int64
	defer func() {
		if host != nil {
			host.Close()
		}
		if guest != nil {
			guest.Close()
		}
	}()

	steps := []smokeStep{
		{"dial", func(ctx context.Context) error {
			var err error
			if host, err = client.Dial(ctx, opts.url, client.Options{ClientID: "smoke-host", Retries: opts.retries, InitialText: "hello"}); err != nil {
				return err
			}
			guest, err = client.Dial(ctx, opts.url, client.Options{ClientID: "smoke-guest", Retries: opts.retries})
			return err
		}},
		{"authenticate", func(ctx context.Context) error {
			if _, err := host.Authenticate(ctx, 0, "smoke-host"); err != nil {
				return err
			}
			user, err := guest.Authenticate(ctx, 0, "smoke-guest")
			guestID = user.ID
			return err
		}},
		{"create_room", func(ctx context.Context) error {
			var err error
			code, err = host.CreateRoom(ctx)
			return err
		}},
		{"join_room", func(ctx context.Context) error {
			if _, err := guest.JoinRoom(ctx, code); err != nil {
				return err
			}
			_, err := host.Expect(ctx, "request_content_for_guest")
			return err
		}},
		{"seed_content", func(ctx context.Context) error {
			if err := host.SendContent(ctx, guestID); err != nil {
				return err
			}
			_, err := guest.Expect(ctx, "receive_content_from_host")
			return err
		}},
		{"text_operation", func(ctx context.Context) error {
			if err := host.SendOperation(ctx, ot.Operation{Kind: ot.KindInsert, Position: 5, Content: ", world"}); err != nil {
				return err
			}
			if _, err := guest.Expect(ctx, "text_operation"); err != nil {
				return err
			}
			if h, g := host.Document().Text(), guest.Document().Text(); h != g {
				return fmt.Errorf("documents diverged: %q vs %q", h, g)
			}
			return nil
		}},
		{"heartbeat", func(ctx context.Context) error {
			return guest.Heartbeat(ctx)
		}},
	}

	report := table.NewWriter()
	report.SetOutputMirror(os.Stdout)
	report.SetTitle("smoke " + opts.url)
	report.AppendHeader(table.Row{"Step", "Result", "Duration"})
	defer report.Render()

	for _, step := range steps {
		start := time.Now()
		err := step.run(ctx)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			report.AppendRow(table.Row{step.name, "FAIL: " + err.Error(), elapsed})
			return fmt.Errorf("%s: %w", step.name, err)
		}
		report.AppendRow(table.Row{step.name, "ok", elapsed})
	}
	report.AppendFooter(table.Row{"room", code, ""})
	return nil
}
