package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/slog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sqlbench/internal/banner"
	"sqlbench/internal/cli"
	"sqlbench/internal/engine"
	"sqlbench/internal/storage"
	"sqlbench/internal/target"
	"sqlbench/internal/tui"
)

var (
	cfgFile string

	// CLI Flags
	query      string
	runs       int
	concurrent bool
	workers    int
	outFile    string
	live       bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlbench",
	Short: "sqlbench - Query Latency Benchmark",
	Long: `
sqlbench runs one SQL query repeatedly against a set of database servers
(Firebird, MySQL, PostgreSQL, MariaDB), measures per-run latency together
with session-scoped IO counters and the execution plan, and writes the
results to a semicolon-delimited CSV.

Servers come from a YAML config file; the query and run parameters come
from flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark()
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sqlbench.yaml)")

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "SQL query to benchmark (required)")
	rootCmd.Flags().IntVarP(&runs, "runs", "n", 10, "Runs per target")
	rootCmd.Flags().BoolVarP(&concurrent, "concurrent", "c", false, "Run the repetitions concurrently")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", engine.DefaultMaxWorkers, "Max concurrent workers per target")
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "results.csv", "Output CSV file (empty to skip)")
	rootCmd.Flags().BoolVar(&live, "live", false, "Show a live progress view instead of plain output")

	rootCmd.MarkFlagRequired("query")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".sqlbench")
		}
	}
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// serverEntry mirrors one item of the config file's servers list.
type serverEntry struct {
	DBType   string `mapstructure:"db_type"`
	OSType   string `mapstructure:"os_type"`
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Charset  string `mapstructure:"charset"`
}

// loadTargets builds the target list from the servers section of the config
// file. Invalid entries are skipped with a warning; zero valid entries is an
// error.
func loadTargets() ([]target.Config, error) {
	var entries []serverEntry
	if err := viper.UnmarshalKey("servers", &entries); err != nil {
		return nil, fmt.Errorf("parse servers config: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no servers configured (expected a servers: list in %s)", viper.ConfigFileUsed())
	}

	var targets []target.Config
	for i, e := range entries {
		cfg, err := target.New(target.Config{
			DBType:   target.DBType(e.DBType),
			OSType:   target.OSType(e.OSType),
			Name:     e.Name,
			Host:     e.Host,
			Port:     e.Port,
			Database: e.Database,
			User:     e.User,
			Password: e.Password,
			Charset:  e.Charset,
		})
		if err != nil {
			slog.Warnf("skipping server #%d: %v", i+1, err)
			continue
		}
		targets = append(targets, cfg)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid servers in config")
	}
	return targets, nil
}

func runBenchmark() error {
	targets, err := loadTargets()
	if err != nil {
		return err
	}

	cfg := engine.Config{
		Targets:    targets,
		Query:      query,
		Runs:       runs,
		Concurrent: concurrent,
		MaxWorkers: workers,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if live {
		return tui.Start(ctx, cfg, outFile)
	}
	return cli.Start(ctx, cfg, outFile)
}

// --- History Subcommand ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past benchmark sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewStore()
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()

		items := store.List()
		if len(items) == 0 {
			fmt.Println("No benchmark sessions recorded yet.")
			return nil
		}

		for _, item := range items {
			mode := "sequential"
			if item.Concurrent {
				mode = fmt.Sprintf("concurrent/%d", item.MaxWorkers)
			}
			fmt.Printf("%s  %s\n", item.Timestamp.Format("2006-01-02 15:04:05"), item.ID)
			fmt.Printf("    query: %s\n", item.Query)
			fmt.Printf("    runs: %d (%s), targets: %d", item.Runs, mode, len(item.Targets))
			if item.OutputFile != "" {
				fmt.Printf(", csv: %s", item.OutputFile)
			}
			fmt.Println()
			for _, t := range item.Targets {
				if t.Succeeded == 0 {
					fmt.Printf("      %s (%s/%s): no successful runs\n", t.Target, t.DBType, t.OSType)
					continue
				}
				fmt.Printf("      %s (%s/%s): mean=%.6fs p50=%.2fms p99=%.2fms runs=%d/%d\n",
					t.Target, t.DBType, t.OSType, t.MeanSeconds, t.P50Ms, t.P99Ms, t.Succeeded, t.Runs)
			}
		}
		return nil
	},
}
