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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opennetfabric/gateway/gateway/config"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yml>",
		Short: "Validate a gateway configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: valid (%d vrfs, %d vpcs, %d peerings)\n",
				args[0], c.Vrfs.Len(), len(c.Vpcs), len(c.Peerings))
			return nil
		},
	}
}

func loadConfig(path string) (*config.InternalConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext, err := config.ParseYAML(raw)
	if err != nil {
		return nil, err
	}
	return ext.Internal()
}
