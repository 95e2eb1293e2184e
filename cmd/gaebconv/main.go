package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/config"
	"github.com/baukit/gaebconv/pkg/export"
	"github.com/baukit/gaebconv/pkg/ingest"
	"github.com/baukit/gaebconv/pkg/server"
	"github.com/baukit/gaebconv/pkg/watch"
)

var version = "0.1.0"

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gaebconv",
		Short: "GAEB bill-of-quantities converter",
		Long: `Gaebconv normalizes construction-industry bill-of-quantities exchange
files (GAEB XML, GAEB90, GAEB2000 and free-form text) into a uniform
hierarchical model and serializes it into a production-tracking
spreadsheet or a flat CSV.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(formatsCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the CLI logger: silent unless --verbose.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert BoQ files into a production-tracking spreadsheet",
		Long: `Convert one or more bill-of-quantities files into a single XLSX
workbook (or CSV with --csv). Files with the same name replace earlier
ones instead of duplicating them.

Example:
  gaebconv convert angebot.x83 rohbau.d83 --output ./out
  gaebconv convert angebot.x83 --csv --include-description`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir, _ := cmd.Flags().GetString("output")
			asCSV, _ := cmd.Flags().GetBool("csv")
			stem, _ := cmd.Flags().GetString("stem")
			includeDesc, _ := cmd.Flags().GetBool("include-description")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.Export.OutputDir
			}
			if stem == "" {
				stem = cfg.Export.Stem
			}
			opts := export.Options{
				IncludeDescription: includeDesc || cfg.Export.IncludeDescription,
				Stem:               stem,
			}

			log := newLogger()
			defer log.Sync()

			pipeline := ingest.NewPipeline(log)
			docs := boq.NewCollection()

			for _, path := range args {
				fmt.Printf("Parsing %s... ", filepath.Base(path))
				doc, err := pipeline.ParseFile(path)
				if err != nil {
					fmt.Println("failed")
					fmt.Fprintf(os.Stderr, "  %v\n", err)
					continue
				}
				fmt.Printf("done (%s, %d Kategorien, %d Positionen)\n",
					doc.Header.DetectedFormat,
					doc.CountByType(boq.NodeTitle),
					doc.CountByType(boq.NodePosition))
				docs.Put(doc)
			}

			if docs.Len() == 0 {
				return fmt.Errorf("no documents parsed")
			}

			outPath, err := writeExport(docs, opts, outputDir, asCSV)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "output directory (default from config)")
	cmd.Flags().Bool("csv", false, "write a flat CSV instead of an XLSX workbook")
	cmd.Flags().String("stem", "", "output file-name stem")
	cmd.Flags().Bool("include-description", false, "include node descriptions in the export")
	return cmd
}

// writeExport serializes the collection to the output directory and returns
// the written path.
func writeExport(docs *boq.Collection, opts export.Options, outputDir string, asCSV bool) (string, error) {
	exporter := export.NewExporter(nil)
	now := time.Now()

	if asCSV {
		outPath := filepath.Join(outputDir, export.ExportFileName(opts.Stem, "csv", now))
		f, err := os.Create(outPath)
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		if err := exporter.WriteCSV(f, docs.Documents(), opts); err != nil {
			return "", fmt.Errorf("exporting CSV: %w", err)
		}
		return outPath, nil
	}

	outPath := filepath.Join(outputDir, export.ExportFileName(opts.Stem, "xlsx", now))
	wb, err := exporter.WriteWorkbook(docs.Documents(), opts)
	if err != nil {
		return "", fmt.Errorf("exporting workbook: %w", err)
	}
	defer wb.Close()
	if err := wb.SaveAs(outPath); err != nil {
		return "", fmt.Errorf("saving %s: %w", outPath, err)
	}
	return outPath, nil
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Parse a BoQ file and print its structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			log := newLogger()
			defer log.Sync()

			pipeline := ingest.NewPipeline(log)
			doc, err := pipeline.ParseFile(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}

			fmt.Println(doc.Summary())
			if doc.Header.ProjectName != nil {
				fmt.Printf("Projekt: %s\n", *doc.Header.ProjectName)
			}
			if doc.Header.Version != nil {
				fmt.Printf("Version: %s\n", *doc.Header.Version)
			}
			fmt.Println()
			for _, node := range doc.Positions {
				indent := ""
				for i := 0; i < node.Level; i++ {
					indent += "  "
				}
				qty := ""
				if node.Quantity != nil {
					qty = fmt.Sprintf(" %g %s", *node.Quantity, node.Unit)
				}
				fmt.Printf("%s[%s] %s %s%s\n", indent, node.Type.DisplayName(), node.PositionNumber, node.Title, qty)
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the full document as JSON")
	return cmd
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the accepted file extensions and dialects",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Accepted extensions:")
			fmt.Println("  .x83  GAEB DA XML")
			fmt.Println("  .d83  GAEB90 (line oriented)")
			fmt.Println("  .p83  GAEB2000 (line oriented)")
			fmt.Println("  .txt  free-form text")
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor directories and convert new BoQ files automatically",
		Long: `Watch one or more directories. Every new or changed file with an
accepted extension is parsed and the workbook is rewritten from all
documents seen so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, _ := cmd.Flags().GetStringSlice("dir")
			outputDir, _ := cmd.Flags().GetString("output")
			scanExisting, _ := cmd.Flags().GetBool("scan-existing")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				dirs = cfg.Watch.Dirs
			}
			if len(dirs) == 0 {
				return fmt.Errorf("--dir flag or watch.dirs config is required")
			}
			if outputDir == "" {
				outputDir = cfg.Export.OutputDir
			}
			opts := export.Options{
				IncludeDescription: cfg.Export.IncludeDescription,
				Stem:               cfg.Export.Stem,
			}

			log := newLogger()
			defer log.Sync()

			pipeline := ingest.NewPipeline(log)
			docs := boq.NewCollection()

			handler := func(doc *boq.ParsedDocument) {
				docs.Put(doc)
				fmt.Println(doc.Summary())
				outPath, err := writeExport(docs, opts, outputDir, false)
				if err != nil {
					fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
					return
				}
				fmt.Printf("Wrote %s\n", outPath)
			}

			watcher := watch.New(pipeline, handler, cfg.Watch.Debounce, log)
			if scanExisting {
				if err := watcher.ScanExisting(dirs); err != nil {
					return err
				}
			}
			if err := watcher.Start(dirs); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Printf("Watching %v (Ctrl-C to stop)\n", dirs)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			return nil
		},
	}

	cmd.Flags().StringSlice("dir", nil, "directory to watch (repeatable)")
	cmd.Flags().StringP("output", "o", "", "output directory")
	cmd.Flags().Bool("scan-existing", false, "convert files already present before watching")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload/export API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			opts := export.Options{
				IncludeDescription: cfg.Export.IncludeDescription,
				Stem:               cfg.Export.Stem,
			}

			log, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer log.Sync()

			pipeline := ingest.NewPipeline(log)
			docs := boq.NewCollection()
			srv := server.NewServer(pipeline, docs, opts, log)

			fmt.Printf("Listening on %s\n", addr)
			return http.ListenAndServe(addr, srv)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}
