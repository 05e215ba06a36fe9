package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"barberq/internal/customer"
)

func newJoinCommand(ctx *commandContext) *cobra.Command {
	var barber string

	cmd := &cobra.Command{
		Use:   "join <name>",
		Short: "Join a barber's queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.customerService()
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			ticket, err := svc.Join(cmd.Context(), name, barber)
			if err != nil {
				return describeError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Joined %s's queue as %s (client %s)\n", ticket.BarberName, ticket.Name, ticket.ClientID)
			fmt.Fprintf(out, "Your position: %d\n", ticket.Position)
			return nil
		},
	}

	cmd.Flags().StringVarP(&barber, "barber", "b", "", "Barber id to queue for")
	return cmd
}

func newLeaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the queue you joined",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.customerService()
			if err != nil {
				return err
			}
			sess, err := svc.Leave(cmd.Context())
			if err != nil {
				return describeError(err)
			}
			cfg, _ := ctx.ensureConfig()
			fmt.Fprintf(cmd.OutOrStdout(), "Left %s's queue (client %s)\n", cfg.DisplayName(sess.Barber), sess.ClientID)
			return nil
		},
	}
}

type statusJSON struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Barber   string `json:"barber"`
	Found    bool   `json:"found"`
	Position int    `json:"position,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show your position in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.customerService()
			if err != nil {
				return err
			}
			if watch {
				return watchStatus(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), svc)
			}
			status, err := svc.Status(cmd.Context())
			if err != nil {
				return describeError(err)
			}
			if jsonOut {
				return writeJSON(cmd, statusJSON{
					ClientID: status.Session.ClientID,
					Name:     status.Session.Name,
					Barber:   status.Session.Barber,
					Found:    status.Found,
					Position: status.Position,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeStatus(status))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep following your position until you leave the queue")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("watch", "json")
	return cmd
}

func watchStatus(ctx context.Context, out, errOut io.Writer, svc *customer.Service) error {
	sess, err := svc.Restore()
	if err != nil {
		return describeError(err)
	}
	last := ""
	tracker := svc.Track(sess, func(u customer.Update) {
		switch {
		case u.Err != nil:
			fmt.Fprintf(errOut, "position check failed: %v\n", describeError(u.Err))
		case u.Gone:
			fmt.Fprintf(out, "%s is no longer in %s's queue\n", u.Status.Session.Name, u.Status.BarberName)
		case u.Missing > 0:
			// Wait for the tolerance before announcing anything.
		default:
			line := describeStatus(u.Status)
			if line != last {
				fmt.Fprintln(out, line)
				last = line
			}
		}
	})
	return quietCancel(tracker.Run(ctx))
}

func describeStatus(status customer.Status) string {
	if !status.Found {
		return fmt.Sprintf("Client %s was not found in %s's queue", status.Session.ClientID, status.BarberName)
	}
	if status.Position == 1 {
		return fmt.Sprintf("%s, you are next in %s's queue", status.Session.Name, status.BarberName)
	}
	return fmt.Sprintf("%s, you are number %d in %s's queue", status.Session.Name, status.Position, status.BarberName)
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "preview <barber>",
		Short: "Show the position you would get by joining now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.customerService()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !watch {
				position, err := svc.Preview(cmd.Context(), args[0])
				if err != nil {
					return describeError(err)
				}
				fmt.Fprintln(out, previewLine(position))
				return nil
			}

			last := 0
			errOut := cmd.ErrOrStderr()
			loop, err := svc.WatchPreview(args[0], func(position int, err error) {
				if err != nil {
					fmt.Fprintf(errOut, "preview failed: %v\n", describeError(err))
					return
				}
				if position != last {
					fmt.Fprintln(out, previewLine(position))
					last = position
				}
			})
			if err != nil {
				return err
			}
			return quietCancel(loop.Run(cmd.Context()))
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep updating as the queue changes")
	return cmd
}

func previewLine(position int) string {
	return fmt.Sprintf("Your position will be %d", position)
}

// quietCancel treats the end of a watch as success.
func quietCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
