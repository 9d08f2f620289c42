package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"census/internal/census"
	"census/internal/config"
	"census/internal/logging"
	"census/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	apiKey     string
	verbose    bool
	format     string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "census",
	Short: "Fetch tables from the U.S. Census Bureau data API",
	Long: `census fetches tabular data from api.census.gov.

Wide variable lists are split into batches under the API's column limit,
fetched one request per batch and merged back together by row.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if apiKey != "" {
			cfg.Census.APIKey = apiKey
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		cfg.Logging.Format = "console"

		logger, err = logging.New(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	decYear      int
	decGeography string
	decDataset   string
	decState     string
	decCounties  []string
	decGroups    []string
)

var decennialCmd = &cobra.Command{
	Use:   "decennial",
	Short: "Fetch decennial data summed into variable groups",
	Example: `  census decennial --year 2020 --geography county --dataset pl \
    --county 06037 --group pop=P1_001N`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildDecennialRequest()
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		table, err := client.GetDecennialData(ctx, req)
		if err != nil {
			return err
		}
		return writeTable(cmd.OutOrStdout(), table, format)
	},
}

var (
	tblYear        int
	tblDatasetPath string
	tblGet         string
	tblFor         string
	tblIn          []string
)

var tableCmd = &cobra.Command{
	Use:     "table",
	Short:   "Fetch raw variables from any dataset",
	Example: `  census table --year 2021 --dataset-path acs/acs5 --get NAME,B01001_001E --for state:*`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		table, err := client.FetchTable(ctx, models.TableRequest{
			Variables:   splitList(tblGet),
			Year:        tblYear,
			For:         tblFor,
			In:          tblIn,
			DatasetPath: tblDatasetPath,
		})
		if err != nil {
			return err
		}
		return writeTable(cmd.OutOrStdout(), table, format)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "census.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Census API key (overrides config and CENSUS_API_KEY)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", "json", "output format: json or csv")

	decennialCmd.Flags().IntVar(&decYear, "year", 2020, "census year (2010 or 2020)")
	decennialCmd.Flags().StringVar(&decGeography, "geography", "county", "geography level")
	decennialCmd.Flags().StringVar(&decDataset, "dataset", "pl", "decennial dataset: "+strings.Join(models.DecennialDatasets, ", "))
	decennialCmd.Flags().StringVar(&decState, "state", "", "2 digit state FIPS code (default: from the first county)")
	decennialCmd.Flags().StringArrayVar(&decCounties, "county", nil, "5 digit county FIPS code (repeatable)")
	decennialCmd.Flags().StringArrayVar(&decGroups, "group", nil, "output column as name=CODE[,CODE...] (repeatable)")
	_ = decennialCmd.MarkFlagRequired("group")

	tableCmd.Flags().IntVar(&tblYear, "year", 0, "data year")
	tableCmd.Flags().StringVar(&tblDatasetPath, "dataset-path", "", "dataset path below the year, e.g. dec/pl")
	tableCmd.Flags().StringVar(&tblGet, "get", "", "comma separated variable codes")
	tableCmd.Flags().StringVar(&tblFor, "for", "", "for predicate, e.g. county:*")
	tableCmd.Flags().StringArrayVar(&tblIn, "in", nil, "in predicate, e.g. state:06 (repeatable)")
	_ = tableCmd.MarkFlagRequired("get")
	_ = tableCmd.MarkFlagRequired("for")
	_ = tableCmd.MarkFlagRequired("dataset-path")

	rootCmd.AddCommand(decennialCmd, tableCmd)
}

func buildDecennialRequest() (models.DecennialRequest, error) {
	req := models.DecennialRequest{
		Year:      decYear,
		Geography: models.GeographyLevel(decGeography),
		Dataset:   decDataset,
		StateID:   models.StateFIPS(decState),
	}
	for _, c := range decCounties {
		req.CountyIDs = append(req.CountyIDs, models.CountyFIPS(strings.TrimSpace(c)))
	}
	for _, g := range decGroups {
		group, err := models.ParseVariableGroup(g)
		if err != nil {
			return req, err
		}
		req.Groups = append(req.Groups, group)
	}
	return req, nil
}

func newClient() (*census.Client, error) {
	opts, err := cfg.Census.ClientOptions()
	if err != nil {
		return nil, err
	}
	return census.NewClient(cfg.Census.APIKey, append(opts, census.WithLogger(logger))...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
