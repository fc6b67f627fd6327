/*
Copyright © 2020 Disfetch Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var handlerURL, handlerCommand string
var handlerArgv []string
var retryCount, retryDelaySeconds, startupDelaySeconds int
var pollTimeoutMillis, commitIntervalSeconds, metricsPort int
var enableVerboseLog bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "disfetch",
	Short: "Pull records from a partitioned stream and deliver them to a handler",
	Long: `disfetch continuously polls a partitioned stream service,
emits the records to a handler endpoint and periodically commits
the confirmed offsets back to the source.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.disfetch.yaml)")
	rootCmd.PersistentFlags().StringVar(&handlerURL, "handler-url", "", "url of the handler endpoint receiving the records")
	rootCmd.PersistentFlags().StringVar(&handlerCommand, "handler-command", "", "command to launch the handler process")
	rootCmd.PersistentFlags().StringArrayVar(&handlerArgv, "handler-arg", []string{}, "arguments to the handler command")
	rootCmd.PersistentFlags().IntVar(&retryCount, "retry-count", 1, "number of retries on the bootstrap and delivery paths")
	rootCmd.PersistentFlags().IntVar(&retryDelaySeconds, "retry-delay-seconds", 1, "delay between retries")
	rootCmd.PersistentFlags().IntVar(&startupDelaySeconds, "startup-delay-seconds", 0, "time to wait for the handler process to start")
	rootCmd.PersistentFlags().IntVar(&pollTimeoutMillis, "poll-timeout-ms", 100, "bound of a single network poll")
	rootCmd.PersistentFlags().IntVar(&commitIntervalSeconds, "commit-interval-seconds", 15, "delay between periodic offset commits")
	rootCmd.PersistentFlags().IntVar(&metricsPort, "metrics-port", 0, "port to expose prometheus metrics on (0 disables)")
	rootCmd.PersistentFlags().BoolVar(&enableVerboseLog, "verbose", false, "enable verbose logging")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".disfetch" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".disfetch")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
