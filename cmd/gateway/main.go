// Copyright 2025 Open Network Fabric Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command gateway runs the network fabric gateway dataplane.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opennetfabric/gateway/private/gwsync"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Network fabric gateway dataplane",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(
		newRunCommand(),
		newValidateCommand(),
		newVersionCommand(),
	)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gateway %s (sync: %s)\n", version, gwsync.Mode)
		},
	}
}
