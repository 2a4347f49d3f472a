package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ostafen/raidrescue/internal/env"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const AppName = env.AppName

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand(viper.New()).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Settings are resolved, by
// decreasing priority, from flags, RAIDRESCUE_* environment variables and the
// configuration file.
func NewRootCommand(cfg *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - RAID5 recovery from disk images",
		Long: `Recover a RAID5 array from images of its disks when the array metadata is lost:
detect the page size, find which images belong together, check parity,
detect the disk order and finally rebuild or mount the virtual disk.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.IntP("workers", "j", 0, "number of parallel workers (default: number of CPUs)")
	flags.BoolP("verbose", "v", false, "print debug messages")
	flags.Var(&rangesValue{}, "ranges", "restrict examination to page ranges, e.g. 0-1000,5000:6000")
	flags.String("log-file", "", "write a detailed log to this file")
	flags.String("config", "", "configuration file (yaml, toml or json)")
	flags.Bool("mmap", false, "map images into memory instead of reading them")

	rootCmd.AddCommand(
		DefinePageSizeCommand(cfg),
		DefineRaidSetCommand(cfg),
		DefineParityCheckCommand(cfg),
		DefineOrderCommand(cfg),
		DefineRestoreCommand(cfg),
		DefineMountCommand(cfg),
	)
	return rootCmd
}

func loadConfig(cmd *cobra.Command, cfg *viper.Viper) error {
	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	cfg.SetEnvPrefix(strings.ToUpper(AppName))
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	path := cfg.GetString("config")
	if path == "" {
		return nil
	}

	cfg.SetConfigFile(path)
	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// run opens a session for cmd and hands it to fn.
func run(cfg *viper.Viper, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		err = fn(cmd, s, args)
		if err != nil {
			s.log.Error("command failed", "command", cmd.Name(), "err", err)
		}
		return err
	}
}
