package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/glossy/internal/arith"
	"github.com/ashureev/glossy/internal/chat"
	"github.com/ashureev/glossy/internal/probe"
)

func (app *App) addAskCommand(rootCmd *cobra.Command) {
	askCmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Answer a chat message",
		Long: `Run a message through the assistant pipeline: greeting, "watch " video
search, arithmetic, knowledge summary, then the web search fallback.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("message is empty")
			}
			resolver, err := app.resolver(app.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Timeout)
			defer cancel()
			out := resolver.Resolve(ctx, text)

			msg := chat.Reply(out, chat.DefaultConfig().FallbackEngine, time.Now())
			fmt.Fprintln(cmd.OutOrStdout(), msg.Text)
			if msg.Link != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg.Link.Label, msg.Link.Href)
			}
			return nil
		},
	}
	rootCmd.AddCommand(askCmd)
}

func (app *App) addCalcCommand(rootCmd *cobra.Command) {
	calcCmd := &cobra.Command{
		Use:   "calc <expression>",
		Short: "Evaluate an arithmetic expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.ToLower(strings.Join(args, " "))
			if !arith.Accepts(expr) {
				return fmt.Errorf("not an arithmetic expression: %q", expr)
			}
			v, err := arith.Eval(expr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), arith.Format(v))
			return nil
		},
	}
	rootCmd.AddCommand(calcCmd)
}

func (app *App) addEnginesCommand(rootCmd *cobra.Command) {
	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "List search engines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := app.catalog()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSUBMIT URL\tPARAM")
			for _, e := range catalog.Engines() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.SubmitURL, e.Param)
			}
			return tw.Flush()
		},
	}

	urlCmd := &cobra.Command{
		Use:   "url <query>",
		Short: "Print the search URL for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := app.catalog()
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("engine")
			e, ok := catalog.Lookup(id)
			if !ok {
				return fmt.Errorf("unknown engine %q", id)
			}
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("query is empty")
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.URL(query))
			return nil
		},
	}
	urlCmd.Flags().String("engine", "google", "Engine id or alias")

	enginesCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(enginesCmd)
}

func (app *App) addHealthCommand(rootCmd *cobra.Command) {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server's feature health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			ctx, cancel := context.WithTimeout(cmd.Context(), app.Timeout)
			defer cancel()

			var failed bool
			for _, svc := range probe.Services {
				status, err := probe.Check(ctx, addr, svc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", svc, status)
				if status.String() != "SERVING" {
					failed = true
				}
			}
			if failed {
				return errors.New("one or more features are not serving")
			}
			return nil
		},
	}
	healthCmd.Flags().String("addr", "localhost:9090", "Health probe address")
	rootCmd.AddCommand(healthCmd)
}
