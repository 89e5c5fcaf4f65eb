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
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/imageinfo"
	ilog "aeroinspect/internal/log"
	"aeroinspect/internal/storage"
)

// NewInitCmd creates the command that sets up a new report folder.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <report-dir> [name]",
		Short: "Create a new report folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services(cmd)
			defer func() { _ = svc.Close() }()

			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			h, err := svc.CreateReport(abs, name)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("verifier"); v != "" {
				h.Report.Verifier = v
				if err := storage.SaveReport(h); err != nil {
					return err
				}
			}
			ilog.WithComponent("cli").Info("report created", slog.String("root", abs))
			fmt.Fprintf(cmd.OutOrStdout(), "Created report %q at %s\n", h.Report.Name, abs)
			return nil
		},
	}
	cmd.Flags().String("verifier", "", "User who verifies the report")
	return cmd
}

// NewAddCmd creates the command that imports photos into a report.
func NewAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <report-dir> <image>...",
		Short: "Import photos into a report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services(cmd)
			defer func() { _ = svc.Close() }()

			h, err := svc.OpenReport(args[0])
			if err != nil {
				return err
			}
			for _, src := range args[1:] {
				rel, err := h.ImportImage(src)
				if err != nil {
					return err
				}
				if info, err := imageinfo.Read(h.Resolve(rel)); err == nil {
					h.Report.ImageInfo[rel] = info
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", rel)
			}
			return storage.SaveReport(h)
		},
	}
}

// NewInfoCmd creates the command that prints a report summary.
func NewInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <report-dir>",
		Short: "Print a report summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.OpenReport(args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), h.Report)
			return nil
		},
	}
}

func printReport(w io.Writer, r *domain.Report) {
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(w, "%-11s %s\n", k+":", v)
		}
	}
	row("Report", r.Name)
	row("ID", r.ID)
	row("Aircraft", r.AircraftType)
	row("Tail", r.TailNumber)
	row("Side", r.Side)
	row("Reason", r.Reason)
	row("Inspector", r.Inspector)
	row("Verifier", r.Verifier)
	if !r.UpdatedAt.IsZero() {
		row("Updated", r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	row("Images", fmt.Sprint(len(r.Images)))
	for _, p := range r.Images {
		c := r.CountByAuthor(p)
		fmt.Fprintf(w, "  %s  inspector %d  verifier %d  ai %d", p, c[domain.Inspector], c[domain.Verifier], c[domain.AI])
		if adj := r.AdjustmentFor(p); !adj.IsIdentity() {
			fmt.Fprintf(w, "  brightness %+.0f  contrast %.2f", adj.Brightness, adj.Contrast)
		}
		fmt.Fprintln(w)
	}
	if r.Notes != "" {
		fmt.Fprintf(w, "\nNotes:\n%s\n", r.Notes)
	}
}
