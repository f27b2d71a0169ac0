// Package cli holds the cobra command tree for the acctd binary.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acctd",
		Short: "Account administration REST backend",
		Long: `acctd serves the account administration REST API: affinity programs,
special accounts, policies, distribution lists, dropdown catalogs, and
Outlook compose links, backed by SQL Server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./acctd.yaml)")

	cobra.OnInitialize(initConfig)

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newOpenAPICmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("acctd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/acctd")
	}

	viper.SetEnvPrefix("ACCTD")
	viper.SetEnvKeyReplacer(envKeyReplacer())
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
