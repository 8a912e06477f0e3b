package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rightmove-scraper/config"
	"rightmove-scraper/geocoder"
	"rightmove-scraper/models"
	"rightmove-scraper/scraper/rightmove"
	"rightmove-scraper/server"
	"rightmove-scraper/services"
	"rightmove-scraper/storage"
	"rightmove-scraper/utils"
)

var (
	logger = utils.NewLogger()
	cfg    *config.Config

	verbose      bool
	locationID   string
	exportFormat string
	outputDir    string
	listenAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "rightmove-scraper",
	Short: "Export Rightmove search results with geocoded addresses",
	Long: `Resolves a place name to a Rightmove location, fetches every listing of the
search, reverse-geocodes each listing's coordinates and writes the result as a
spreadsheet.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.SetLevel(cfg.LogLevel)
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run one search and write the export",
	Long: `Runs the full pipeline once. The query is a place name ("marlow") or a
location identifier ("REGION^916"); without one the configured location is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the download page over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var locationsCmd = &cobra.Command{
	Use:   "locations <query>",
	Short: "List the location identifiers matching a place name",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocations,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringVar(&locationID, "location-id", "", "search this location identifier instead of resolving a name")
	runCmd.Flags().StringVar(&exportFormat, "format", "", "export format: xlsx or csv")
	runCmd.Flags().StringVar(&outputDir, "out-dir", "", "directory for the export file")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default LISTEN_ADDR)")
	serveCmd.Flags().StringVar(&exportFormat, "format", "", "export format: xlsx or csv")
	serveCmd.Flags().StringVar(&outputDir, "out-dir", "", "directory for export files")

	rootCmd.AddCommand(runCmd, serveCmd, locationsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		if kind := models.ErrorKind(err); kind == "configuration" {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func applyFlags() {
	if exportFormat != "" {
		cfg.ExportFormat = exportFormat
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
}

// buildPipeline wires the Rightmove client, the geocoder and the export writer
// into a pipeline. Every collaborator shares one HTTP client.
func buildPipeline() (*services.Pipeline, *rightmove.Client, error) {
	applyFlags()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	httpClient := rightmove.NewHTTPClient(cfg.RequestTimeout)
	client := rightmove.New(cfg, httpClient, logger)

	geo, err := geocoder.NewGoogle(cfg, httpClient)
	if err != nil {
		return nil, nil, err
	}

	writer, err := storage.NewTableWriter(cfg.ExportFormat)
	if err != nil {
		return nil, nil, &models.ConfigurationError{Key: "EXPORT_FORMAT", Reason: err.Error()}
	}

	return services.NewPipeline(cfg, logger, client, client, geo, writer), client, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	pipeline, _, err := buildPipeline()
	if err != nil {
		return err
	}

	query := locationID
	if query == "" && len(args) > 0 {
		query = args[0]
	}

	logger.Info("=== Rightmove scraper starting ===")
	logger.Info("Config: page size %d | ceiling %d | concurrency %d | retries %d | format %s",
		cfg.PageSize, cfg.MaxResults, cfg.MaxConcurrency, cfg.MaxRetries, cfg.ExportFormat)

	run, err := pipeline.Run(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("run failed [%s]: %w", models.ErrorKind(err), err)
	}

	insights := services.NewInsightService(logger)
	insights.Print(cmd.OutOrStdout(), insights.Generate(run.Listings))

	logger.Info("Export written to %s", run.OutputPath)
	logger.Info("=== Run %s complete ===", run.ID)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	pipeline, client, err := buildPipeline()
	if err != nil {
		return err
	}

	defaultQuery := cfg.LocationIdentifier
	if defaultQuery == "" {
		defaultQuery = cfg.SearchQuery
	}
	return server.New(pipeline, client, logger, defaultQuery).ListenAndServe(cmd.Context(), cfg.ListenAddr)
}

func runLocations(cmd *cobra.Command, args []string) error {
	client := rightmove.New(cfg, nil, logger)

	locs, err := client.Locations(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(locs) == 0 {
		cmd.Println("No matching locations.")
		return nil
	}
	for i, l := range locs {
		cmd.Printf("  [%d] %-20s %s\n", i+1, l.Identifier, l.DisplayName)
	}
	return nil
}
