package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "duet",
	Short: "Tooling for the two-service api+db deployment topology",
	Long: `Duet owns the deployment descriptors for a two-service stack: an HTTP
API built from source and a relational database from a pinned image, joined
by a private network with a persistent volume for database state.

Commands:
  render    Write the image build recipe and compose topology from stack.toml
  validate  Check descriptors against the deployment contract
  plan      Show the start order the topology's dependencies imply
  env       Resolve the API environment file and bind port`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.duet.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".duet")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
