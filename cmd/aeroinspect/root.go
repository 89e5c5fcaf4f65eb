/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aeroinspect/internal/bootstrap"
	ilog "aeroinspect/internal/log"
	"aeroinspect/internal/version"
)

// loadServices is replaced in tests.
var loadServices = bootstrap.Load

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aeroinspect",
		Short: "Annotate and export aircraft inspection photos",
		Long: `AeroInspect keeps inspection reports as folders holding report.json,
the imported photos and rolling backups. Inspectors and verifiers mark
damage as circles; an analysis service can propose additional areas.

Run "aeroinspect ui" for the desktop editor (built with -tags fyne).`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewInfoCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewTokenCmd())
	cmd.AddCommand(NewUICmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// services loads the shared services and applies --verbose.
func services(cmd *cobra.Command) *bootstrap.Services {
	svc := loadServices()
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		o := svc.Config.LogOptions()
		o.Level = "debug"
		ilog.Init(o)
	}
	return svc
}
