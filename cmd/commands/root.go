/*
Copyright 2024 The Cryoproj Authors.

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

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cryoproj/forcingcache/pkg/store"
	"github.com/cryoproj/forcingcache/pkg/store/redis"
	"github.com/cryoproj/forcingcache/pkg/store/sqlite"
)

var rootCmd = NewRootCommand()

// NewRootCommand returns the forcingcache root command. Store selection is
// shared by every subcommand: --store picks the backend, --db and
// --redis-addr point at it. Each flag can also come from the environment
// with the FORCINGCACHE_ prefix or from a config file named
// forcingcache.yaml in the working directory.
func NewRootCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "forcingcache",
		Short: "Inspect and sample time-dependent forcing data stores",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	command.PersistentFlags().String("store", "sqlite", `Record store backend, "sqlite" or "redis"`)
	command.PersistentFlags().String("db", "forcing.db", "SQLite database file")
	command.PersistentFlags().String("redis-addr", "localhost:6379", "Redis server address")
	return command
}

var config = initConfig()

func initConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigName("forcingcache")
	v.AddConfigPath(".")
	v.SetEnvPrefix("forcingcache")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.ReadInConfig() // the config file is optional
	_ = v.BindPFlags(rootCmd.PersistentFlags())
	return v
}

// openStore opens the record store the persistent flags select.
func openStore(ctx context.Context) (store.RecordStore, error) {
	switch backend := config.GetString("store"); backend {
	case "sqlite":
		return sqlite.Open(config.GetString("db"))
	case "redis":
		return redis.Connect(ctx, config.GetString("redis-addr"))
	default:
		return nil, fmt.Errorf("unsupported store backend %q", backend)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(NewInfoCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewSampleCommand())
	rootCmd.AddCommand(NewVersionCommand())
}
