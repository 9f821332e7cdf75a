package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/catalog"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/storage"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chunkstore",
		Short:         "Store datasets as chunks and read them back by prefix",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newStoreCmd(), newReadCmd(), newJobsCmd())
	return rootCmd
}

// withApp loads configuration, builds the backends and closes them after fn returns.
func withApp(cmd *cobra.Command, fn func(a *app) error) (retErr error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	return fn(a)
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Split a TSV dataset into chunks and write them to a backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			writeType, _ := cmd.Flags().GetString("write-type")
			endpoint, _ := cmd.Flags().GetString("endpoint")

			ds, err := readInput(cmd, input)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				manifest, err := a.service().Ingest(cmd.Context(), ds, writeType, endpoint)
				if manifest != nil {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(manifest); encErr != nil {
						return encErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().String("input", "-", "TSV file to store, header row first (- for stdin)")
	cmd.Flags().String("write-type", storage.Local.String(), "localstorage, cloudstorage or databasestorage")
	cmd.Flags().String("endpoint", "", "endpoint descriptor <domain>_<subject>")
	_ = cmd.MarkFlagRequired("endpoint")
	return cmd
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read every chunk under a prefix into one TSV dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceName, _ := cmd.Flags().GetString("source")
			prefix, _ := cmd.Flags().GetString("prefix")
			output, _ := cmd.Flags().GetString("output")

			kind, err := storage.ParseWriteType(sourceName)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				source, err := a.router.Source(kind)
				if err != nil {
					return err
				}

				res, readErr := a.reader(source).Read(cmd.Context(), prefix)
				if res == nil {
					return readErr
				}
				if err := writeOutput(cmd, output, res.Dataset); err != nil {
					return err
				}
				slog.InfoContext(cmd.Context(), "prefix read",
					"prefix", prefix,
					"objects", res.Files,
					"skipped", len(res.Skipped),
					"rows", humanize.Comma(int64(res.Dataset.NumRows())),
				)
				return readErr
			})
		},
	}
	cmd.Flags().String("source", storage.Local.String(), "backend to read from: localstorage or cloudstorage")
	cmd.Flags().String("prefix", "", "object prefix, e.g. historicaldata/output/AAPL/20250312")
	cmd.Flags().String("output", "-", "TSV file to write (- for stdout)")
	return cmd
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recorded write manifests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, _ := cmd.Flags().GetString("endpoint")
			limit, _ := cmd.Flags().GetInt("limit")

			return withApp(cmd, func(a *app) error {
				if a.catalog == nil {
					return &config.ErrMissingRequiredEnvVar{Name: "CATALOG_DSN"}
				}
				manifests, err := a.catalog.List(cmd.Context(), catalog.Filter{Endpoint: endpoint, Limit: limit})
				if err != nil {
					return &UnavailableError{Service: "catalog", Err: err}
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "JOB ID\tENDPOINT\tWRITE TYPE\tROWS\tCHUNKS\tEXTRACTED\tELAPSED\tLOCATION")
				for _, m := range manifests {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
						m.JobID, m.Endpoint, m.WriteType, humanize.Comma(int64(m.Rows)), m.Chunks,
						humanize.Time(m.ExtractedAt), m.Elapsed.Round(time.Millisecond), m.Location)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().String("endpoint", "", "only jobs for this endpoint, as domain/subject")
	cmd.Flags().Int("limit", 20, "maximum number of jobs")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (*dataset.Dataset, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, &InputError{Path: path, Err: err}
		}
		defer f.Close()
		r = f
	}

	ds, err := dataset.ReadTSV(bufio.NewReader(r))
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return ds, nil
}

func writeOutput(cmd *cobra.Command, path string, ds *dataset.Dataset) (retErr error) {
	var w io.Writer = cmd.OutOrStdout()
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil && retErr == nil {
				retErr = err
			}
		}()
		w = f
	}

	bw := bufio.NewWriter(w)
	if err := dataset.WriteTSV(bw, ds); err != nil {
		return err
	}
	return bw.Flush()
}
