package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"haruki-const-decrypter/config"
	harukiLogger "haruki-const-decrypter/utils/logger"
)

var (
	configPath string
	logLevel   string
	mainLogger = harukiLogger.NewLogger("Main", "INFO", nil)
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "haruki-const-decrypter",
		Short:         "Recover constants hidden by ConfuserEx 1.7 style constant protection",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(configPath); err != nil {
				return err
			}
			if logLevel != "" {
				config.Cfg.Backend.LogLevel = logLevel
			}
			mainLogger.SetLevel(config.Cfg.Backend.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "haruki-const-configs.yaml", "configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override backend.log_level")
	root.AddCommand(newServeCmd(), newDetectCmd(), newResolveCmd(), newReportCmd())
	return root
}

func main() {
	root := newRootCmd()
	root.SetOut(os.Stdout)
	if err := root.Execute(); err != nil {
		mainLogger.Errorf("%v", err)
		os.Exit(1)
	}
}

// openLogWriter tees the main log into backend.main_log_file when set.
func openLogWriter() (io.Writer, func(), error) {
	if config.Cfg.Backend.MainLogFile == "" {
		return os.Stdout, func() {}, nil
	}
	logFile, err := os.OpenFile(config.Cfg.Backend.MainLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stdout, logFile), func() { _ = logFile.Close() }, nil
}
