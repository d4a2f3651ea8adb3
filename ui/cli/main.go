// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the dextrust command tree: the root command, the shared
// configuration bootstrap and the version reporting.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attakdefand/DEX-OS-V2-sub001/buildvars"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/bloom"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/config"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/db"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/evidence"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/logging"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/security"
)

const modulePath = "github.com/attakdefand/DEX-OS-V2-sub001"

var version = buildvars.VersionOrDefault("dev") // set by the linker through buildvars
var gitCommit = "dev"
var buildDate = ""

var cfgFile string
var verbose bool

var appConfig config.Config

// setupDefaultServices loads configuration and initializes i18n and logging
// for every command.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), path)
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// First run: persist the effective defaults so users can find and edit them.
		if written, writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Infof("wrote default config to %s", written)
		}
	} else if err != nil {
		return fmt.Errorf("%s: %w", i18n.T("error.config"), err)
	}

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("%s: %w", i18n.T("error.config"), err)
	}

	if err := logging.SetLevel(appConfig.Log.Level); err != nil {
		logging.Warnf("%v", err)
	}
	if verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}

	i18n.Init(appConfig.Language)
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// openStore opens the evidence store the loaded configuration points at.
func openStore() (*evidence.Store, error) {
	if appConfig.Database.Dsn == "" {
		return evidence.Open(appConfig.Evidence.Root)
	}
	dbType, dsn := appConfig.EvidenceDSN()
	return evidence.OpenDSN(dbType, dsn)
}

// newManager builds a security manager sized from configuration. When
// events.persist is set and store is non-nil, every event is also written to
// the store's security_events table.
func newManager(store *evidence.Store) (*security.Manager, error) {
	filter, err := bloom.New(appConfig.Filter.Size, appConfig.Filter.HashCount)
	if err != nil {
		return nil, err
	}
	logOpts := []audit.Option{audit.WithMaxEvents(appConfig.Events.Max)}
	if appConfig.Events.Persist && store != nil {
		logOpts = append(logOpts, audit.WithSink(db.NewEventSink(store.DB())))
	}
	keys := security.NewKeyRegistry(security.WithRotationPeriod(appConfig.Keys.RotationPeriod))
	return security.NewManager(
		security.WithFilter(filter),
		security.WithEventLog(audit.NewLog(logOpts...)),
		security.WithKeyRegistry(keys),
	), nil
}

// Execute runs the CLI entrypoint. The root main package calls this and
// handles the process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command with every subcommand attached. Each
// call returns a fresh tree, so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "dextrust",
		Short:             i18n.T("root.short"),
		Long:              i18n.T("root.long"),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupDefaultServices,
	}

	v, c, d := resolveBuildVersion(nil)
	cmd.Version = compositeVersion(v, c, d)

	defaults := config.Defaults()
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug output (includes DB traces)")
	flags.StringVar(&cfgFile, "config", "", "config file")
	flags.String("evidence-root", defaults["evidence.root"].(string), "Directory holding the evidence database")
	flags.String("db-type", defaults["database.type"].(string), "Database type (sqlite, postgres, mysql)")
	flags.String("dsn", "", "Database connection string; overrides the evidence root")
	flags.Int("filter-size", defaults["filter.size"].(int), "Bits in the access membership filter")
	flags.Int("filter-hashes", defaults["filter.hash_count"].(int), "Probes per filter item")
	flags.Int("events-max", defaults["events.max"].(int), "In-memory security event cap (0 = unbounded)")
	flags.String("lang", defaults["language"].(string), `Output language ("en", "de")`)
	flags.String("log-level", defaults["log.level"].(string), "Log level (debug, info, warn, error)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("version.short"),
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newEvidenceCmd(),
		newKeysCmd(),
		newEventsCmd(),
		newCertCmd(),
		newPIICmd(),
		versionCmd,
	)
	return cmd
}

func compositeVersion(v, c, d string) string {
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, build info is read from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate
	if buildvars.Commit != "" {
		resolvedCommit = buildvars.Commit
	}
	if buildvars.Date != "" {
		resolvedDate = buildvars.Date
	}

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" && resolvedVersion == "dev" {
			resolvedVersion = info.Main.Version
		}
		if resolvedVersion == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" && resolvedCommit == "dev" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" && resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && resolvedCommit != "dev" && resolvedCommit != "" {
		resolvedVersion = resolvedCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
