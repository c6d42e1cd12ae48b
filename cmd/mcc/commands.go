package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/processor"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/config"
	httpapi "github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/http"
)

func serveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive server messages and resend unsent payments hourly",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()

				srv := &http.Server{
					Addr:              a.cfg.HTTP.Listen,
					Handler:           httpapi.NewRouter(a.handler(), a.cfg.HTTP.WebhookPath),
					ReadHeaderTimeout: 10 * time.Second,
				}

				g, ctx := errgroup.WithContext(ctx)

				g.Go(func() error {
					a.log.InfoContext(ctx, "HTTP server running", slog.String("addr", srv.Addr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})

				g.Go(func() error {
					a.scheduler.Run(ctx)
					return nil
				})

				g.Go(func() error {
					a.dispatcher.Run(ctx)
					return nil
				})

				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})

				return g.Wait()
			})
		},
	}
}

func sendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <order-ref>",
		Short: "Register the payment of one order with the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				id, err := a.sender.Send(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payment id %d\n", id)
				return nil
			})
		},
	}
}

func sendUnsentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send-unsent",
		Short: "Send every order that has no payment id yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				result, err := a.sender.SendUnsent(cmd.Context())
				if err != nil {
					return err
				}
				a.dispatcher.DispatchOnce(cmd.Context())
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func retrieveAccountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve-account",
		Short: "Ask the server to send the account data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				report, err := a.api.RetrieveAccount(cmd.Context())
				if err != nil {
					return err
				}
				return printReport(cmd.OutOrStdout(), report)
			})
		},
	}
}

func processCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file|->",
		Short: "Apply a message envelope read from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				var body []byte
				var err error
				if args[0] == "-" {
					body, err = io.ReadAll(cmd.InOrStdin())
				} else {
					body, err = os.ReadFile(args[0])
				}
				if err != nil {
					return err
				}

				report, err := a.api.ProcessMessages(cmd.Context(), body)
				if err != nil {
					return err
				}
				return printReport(cmd.OutOrStdout(), report)
			})
		},
	}
}

func purchaseURLCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purchase-url",
		Short: "Print the subscription page for this server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.api.PurchaseURL())
				return nil
			})
		},
	}
}

func configCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.Dump(opts.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

type reportOutput struct {
	Ignored  string          `json:"ignored,omitempty"`
	Messages []outcomeOutput `json:"messages"`
}

type outcomeOutput struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Applied int    `json:"applied"`
	Error   string `json:"error,omitempty"`
}

func printReport(w io.Writer, report processor.Report) error {
	out := reportOutput{Messages: []outcomeOutput{}}
	if report.Stale != nil {
		out.Ignored = report.Stale.Error()
	}
	for _, o := range report.Outcomes {
		item := outcomeOutput{Index: o.Index, Type: string(o.Type), Applied: o.Applied}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		out.Messages = append(out.Messages, item)
	}
	return printJSON(w, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
