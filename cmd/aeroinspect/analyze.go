/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"aeroinspect/internal/crash"
	"aeroinspect/internal/domain"
	"aeroinspect/internal/editor"
	"aeroinspect/internal/storage"
)

// NewAnalyzeCmd creates the command that runs the analysis service over the
// photos of a report and stores the proposed areas.
func NewAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <report-dir> [image]...",
		Short: "Run automatic damage analysis",
		Long: `Runs the analysis service on every photo of the report, or only on the
given report image paths, and saves the proposed areas as AI annotations.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services(cmd)
			defer func() { _ = svc.Close() }()

			h, err := svc.OpenReport(args[0])
			if err != nil {
				return err
			}
			targets := h.Report.Images
			if len(args) > 1 {
				targets = args[1:]
				for _, p := range targets {
					if !slices.Contains(h.Report.Images, p) {
						return fmt.Errorf("%w: %s", editor.ErrNoImage, p)
					}
				}
			}
			sess := svc.NewSession(h)
			defer crash.Recover(h, func() *domain.Report { return sess.Flush() })

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()
			for _, p := range slices.Clone(targets) {
				if _, err := sess.SelectImage(ctx, p).Wait(ctx); err != nil {
					fmt.Fprintf(out, "%s: skipped (%v)\n", p, err)
					continue
				}
				marks, err := sess.RunAnalysis(ctx).Wait(ctx)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", p, err)
				}
				svc.AnalysisFinished(len(marks))
				fmt.Fprintf(out, "%s: %d area(s)\n", p, len(marks))
			}
			if !sess.Dirty() {
				return nil
			}
			if _, err := sess.Save(ctx, &storage.FileReportStore{Handle: h}).Wait(ctx); err != nil {
				return err
			}
			return nil
		},
	}
}
