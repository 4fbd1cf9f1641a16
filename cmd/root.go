package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/passrate/go-pass-metrics/internal/catalog"
)

// Persistent flags, overridable via PASSMETRICS_* env vars or the optional
// ~/.passmetrics/config.yaml.
var (
	dbPath  string
	workers int
	verbose bool
)

// Filter flags shared by the commands that select competition seasons.
var (
	filterCompetitions []int
	filterSeasons      []int
	filterFromYear     int
	filterToYear       int
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "passmetrics",
	Short: "Positional passing metrics from football open data",
	Long: "Aggregates completed passes per minute of play for every pitch position\n" +
		"across the matches of the StatsBomb open-data corpus.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyConfig(cmd)
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		} else {
			log.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute runs the root command with an interrupt-aware context so an aborted
// run abandons in-flight match fetches cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(configDir(), "passes.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to the SQLite cache")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "concurrent match fetches (0 = platform default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(competitionsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(dropCmd)
}

// addFilterFlags registers the competition/season selection flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&filterCompetitions, "competitions", nil, "competition ids (default: all)")
	cmd.Flags().IntSliceVar(&filterSeasons, "seasons", nil, "season ids (default: all)")
	cmd.Flags().IntVar(&filterFromYear, "from", 2009, "first season year, inclusive")
	cmd.Flags().IntVar(&filterToYear, "to", 2024, "last season year, inclusive")
}

func filtersFromFlags() catalog.Filters {
	return catalog.Filters{
		CompetitionIDs: filterCompetitions,
		SeasonIDs:      filterSeasons,
		FromYear:       filterFromYear,
		ToYear:         filterToYear,
	}
}

// applyConfig overlays env vars and the optional config file onto any flag
// the user did not set explicitly.
func applyConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix("PASSMETRICS")
	viper.AutomaticEnv()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())
	_ = viper.ReadInConfig() // optional

	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("db") {
		if v := viper.GetString("db"); v != "" {
			dbPath = v
		}
	}
	if !flags.Changed("workers") {
		if v := viper.GetInt("workers"); v != 0 {
			workers = v
		}
	}
	if !flags.Changed("verbose") && viper.IsSet("verbose") {
		verbose = viper.GetBool("verbose")
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".passmetrics")
}
