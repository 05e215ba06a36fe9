package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"barberq/internal/barbershop"
	"barberq/internal/config"
	"barberq/internal/dashboard"
	"barberq/internal/logging"
	"barberq/internal/poller"
	"barberq/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and serve barber queues",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueServeCommand(ctx))

	return queueCmd
}

type queueEntryJSON struct {
	Rank     int    `json:"rank"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "list [barber]",
		Short: "List one queue, or every queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			barbers := cfg.Barbers
			if len(args) == 1 {
				b, ok := cfg.Barber(args[0])
				if !ok {
					return fmt.Errorf("unknown barber %q", args[0])
				}
				barbers = []config.Barber{b}
			}

			if watch {
				return watchQueues(cmd.Context(), ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), barbers)
			}

			queues, err := fetchQueues(cmd.Context(), ctx, barbers, len(args) == 0)
			if err != nil {
				return describeError(err)
			}
			if jsonOut {
				payload := make(map[string][]queueEntryJSON, len(queues))
				for barber, snap := range queues {
					entries := make([]queueEntryJSON, 0, snap.Len())
					for _, e := range snap.Entries {
						entries = append(entries, queueEntryJSON{Rank: e.Rank, ClientID: e.ID, Name: e.Name})
					}
					payload[barber] = entries
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			for i, barber := range barbers {
				if i > 0 {
					fmt.Fprintln(out)
				}
				snap := queues[barber.ID]
				fmt.Fprintf(out, "%s (%d waiting)\n", barber.Name, snap.Len())
				if snap.Empty() {
					fmt.Fprintln(out, "No clients in queue.")
					continue
				}
				fmt.Fprint(out, renderTable(
					[]string{"#", "Client", "Name"},
					buildQueueRows(snap),
					[]columnAlignment{alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream queue changes as they happen")
	cmd.MarkFlagsMutuallyExclusive("watch", "json")
	return cmd
}

// fetchQueues loads every requested queue. The staff endpoint returns them all
// in one call; a single barber uses the public endpoint.
func fetchQueues(ctx context.Context, cmdCtx *commandContext, barbers []config.Barber, all bool) (map[string]queue.Snapshot, error) {
	client, err := cmdCtx.client()
	if err != nil {
		return nil, err
	}
	out := make(map[string]queue.Snapshot, len(barbers))
	if all {
		queues, err := client.Queues(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range barbers {
			out[b.ID] = barbershop.Snapshot(queues[b.ID])
		}
		return out, nil
	}
	for _, b := range barbers {
		snap, err := client.QueueSnapshot(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		out[b.ID] = snap
	}
	return out, nil
}

func buildQueueRows(snap queue.Snapshot) [][]string {
	rows := make([][]string, 0, snap.Len())
	for _, e := range snap.Entries {
		rows = append(rows, []string{strconv.Itoa(e.Rank), e.ID, e.Name})
	}
	return rows
}

// watchQueues runs a reconciled view per barber and prints every patch.
func watchQueues(ctx context.Context, cmdCtx *commandContext, out, errOut io.Writer, barbers []config.Barber) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := cmdCtx.client()
	if err != nil {
		return err
	}

	scoped := *cfg
	scoped.Barbers = barbers
	printer := &patchPrinter{out: out, errOut: errOut, names: map[string]string{}}
	for _, b := range barbers {
		printer.names[b.ID] = b.Name
	}
	board, err := dashboard.New(&scoped, client, logger,
		dashboard.WithSinks(printer.sink),
		dashboard.WithErrorHandler(printer.fail),
	)
	if err != nil {
		return err
	}
	return quietCancel(board.Run(ctx))
}

// patchPrinter writes each reconciled operation as one line.
type patchPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	names  map[string]string
}

func (p *patchPrinter) sink(barber string) poller.Sink {
	return poller.SinkFunc(func(patch queue.Patch) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, op := range patch.Ops {
			fmt.Fprintf(p.out, "%s: %s\n", p.names[barber], describeOp(op))
		}
		return nil
	})
}

func (p *patchPrinter) fail(barber string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.errOut, "%s: %v\n", p.names[barber], describeError(err))
}

func describeOp(op queue.Op) string {
	switch op.Kind {
	case queue.OpRemove:
		return fmt.Sprintf("- %s left", op.ID)
	case queue.OpInsert:
		return fmt.Sprintf("+ %s joined (client %s)", op.Name, op.ID)
	case queue.OpUpdateRank:
		return fmt.Sprintf("~ %s moved #%d -> #%d", op.ID, op.From, op.To)
	case queue.OpUpdateLabel:
		return fmt.Sprintf("~ %s renamed to %s", op.ID, op.Name)
	case queue.OpShowPlaceholder:
		return "No clients in queue."
	case queue.OpHidePlaceholder:
		return "queue has clients"
	default:
		return op.String()
	}
}

func newQueueServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve <clientId>",
		Short: "Serve a waiting client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			board, err := dashboard.New(cfg, client, logger)
			if err != nil {
				return err
			}
			if err := board.Refresh(cmd.Context()); err != nil {
				if _, ok := board.Owner(args[0]); !ok {
					return describeError(err)
				}
				logger.Debug("serving despite a failed queue refresh", logging.Error(err))
			}
			barber, err := board.Serve(cmd.Context(), args[0])
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Served client %s from %s's queue\n", args[0], cfg.DisplayName(barber))
			return nil
		},
	}
}
