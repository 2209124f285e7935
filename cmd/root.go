// Copyright © 2019 NAME HERE <EMAIL ADDRESS>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/monoforge/kit/config"
	"github.com/monoforge/kit/pkgs/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// BuildVersion is the build version set by goreleaser.
	BuildVersion = "dev"

	// BuildCommit is the git hash of the build, set by goreleaser.
	BuildCommit = ""
)

var (
	log logger.Logger = logger.NewLogrus()

	cfg *config.AppConfig

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "monoforge",
	Short: "A monorepo pack-exchange and tree-update server",
	Long:  "monoforge serves Git packs over a relational object store and gates history changes through merge requests.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; when unset only environment variables and defaults are used)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
