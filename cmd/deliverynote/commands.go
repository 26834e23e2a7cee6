package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	logistics "github.com/hansjooseptammerik/logistics-automation-mvp"
	"github.com/hansjooseptammerik/logistics-automation-mvp/parser"
)

// parseCmd parses documents without touching the order store.
func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Parse delivery notes and print the records as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compact, _ := cmd.Flags().GetBool("compact")

			registry := parser.NewRegistry()
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}

			for _, path := range args {
				out, err := logistics.ParseDocument(cmd.Context(), registry, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if out.Empty {
					slog.Warn("document has no extractable text", "file", path)
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("compact", false, "Print one JSON object per line")
	return cmd
}

type ingestOutcome struct {
	file   string
	result *logistics.IngestResult
	err    error
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Store delivery notes as orders",
		Long: `Ingest copies each document into the orders directory, creates an order
and fills it from the parsed note. Documents already ingested are skipped
unless --force is given. Files are processed concurrently, bounded by
max_concurrency.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			engine, cfg, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			var opts []logistics.IngestOption
			if force {
				opts = append(opts, logistics.WithForce())
			}

			start := time.Now()
			outcomes := make([]ingestOutcome, len(args))

			g, ctx := errgroup.WithContext(cmd.Context())
			if cfg.MaxConcurrency > 0 {
				g.SetLimit(cfg.MaxConcurrency)
			}
			for i, path := range args {
				g.Go(func() error {
					res, err := engine.Ingest(ctx, path, opts...)
					outcomes[i] = ingestOutcome{file: path, result: res, err: err}
					// Per-file failures are reported, not propagated.
					return nil
				})
			}
			g.Wait()

			failed := printIngest(cmd.OutOrStdout(), outcomes)
			slog.Info("ingest: batch complete",
				"files", len(args), "failed", failed, "elapsed", time.Since(start).Round(time.Millisecond))
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Store documents even if already ingested")
	return cmd
}

func printIngest(w io.Writer, outcomes []ingestOutcome) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	failed := 0
	fmt.Fprintln(tw, "FILE\tORDER\tRESULT")
	for _, o := range outcomes {
		name := filepath.Base(o.file)
		switch {
		case o.err != nil:
			failed++
			fmt.Fprintf(tw, "%s\t-\terror: %v\n", name, o.err)
		case o.result.Duplicate:
			fmt.Fprintf(tw, "%s\t%d\tduplicate\n", name, o.result.OrderID)
		case o.result.ParseError != "":
			fmt.Fprintf(tw, "%s\t%d\tstored, not parsed: %s\n", name, o.result.OrderID, o.result.ParseError)
		default:
			fmt.Fprintf(tw, "%s\t%d\tstored\n", name, o.result.OrderID)
		}
	}
	return failed
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			query, _ := cmd.Flags().GetString("query")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			engine, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			var orders []logistics.Order
			if q := strings.TrimSpace(query); q != "" {
				orders, err = engine.Search(cmd.Context(), q, limit)
			} else {
				orders, err = engine.List(cmd.Context(), status)
			}
			if err != nil {
				return err
			}

			if asJSON {
				if orders == nil {
					orders = []logistics.Order{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(orders)
			}
			printOrders(cmd.OutOrStdout(), orders)
			return nil
		},
	}
	cmd.Flags().String("status", "", "Only orders with this status (NEW, CONTACTED, SCHEDULED, READY FOR WORK)")
	cmd.Flags().StringP("query", "q", "", "Fuzzy search over names, addresses, order refs and items")
	cmd.Flags().Int("limit", 20, "Maximum search results")
	cmd.Flags().Bool("json", false, "Print orders as JSON")
	return cmd
}

func printOrders(w io.Writer, orders []logistics.Order) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTATUS\tDATE\tCLIENT\tPHONE\tADDRESS\tITEMS")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			o.ID, o.Status, o.DeliveryDate, o.ClientName, o.Phone,
			strings.ReplaceAll(o.Address, "\n", ", "), len(o.Items))
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export orders to an xlsx workbook or an items CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			status, _ := cmd.Flags().GetString("status")
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = "orders." + format
			}

			engine, _, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			if output == "-" {
				return engine.Export(cmd.Context(), cmd.OutOrStdout(), format, status)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := engine.Export(cmd.Context(), f, format, status); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "xlsx", "Export format (xlsx, csv)")
	cmd.Flags().String("status", "", "Only orders with this status")
	cmd.Flags().StringP("output", "o", "", `Output file ("-" for stdout, default orders.<format>)`)
	return cmd
}
