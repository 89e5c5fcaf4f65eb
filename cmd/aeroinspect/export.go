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

	"github.com/spf13/cobra"

	"aeroinspect/internal/crash"
	"aeroinspect/internal/domain"
)

// NewExportCmd creates the command that renders annotated copies of a
// report's photos.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <report-dir>",
		Short: "Export annotated photos",
		Long: `Writes one annotated JPEG per photo into <out>/<report name>, replacing
any previous export of the report. With --pdf a summary document is added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services(cmd)
			defer func() { _ = svc.Close() }()

			h, err := svc.OpenReport(args[0])
			if err != nil {
				return err
			}
			opts := svc.ExportOptions(h)
			flags := cmd.Flags()
			if flags.Changed("out") {
				opts.Root, _ = flags.GetString("out")
			}
			if flags.Changed("pdf") {
				opts.PDF, _ = flags.GetBool("pdf")
			}
			if flags.Changed("quality") {
				opts.Quality, _ = flags.GetInt("quality")
			}

			sess := svc.NewSession(h)
			defer crash.Recover(h, func() *domain.Report { return sess.Flush() })
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := sess.Export(ctx, opts).Wait(ctx)
			if err != nil {
				return err
			}
			svc.ExportFinished(res)
			out := cmd.OutOrStdout()
			for _, it := range res.Written {
				fmt.Fprintf(out, "%s -> %s (%d annotation(s))\n", it.Source, it.Output, it.Annotations)
			}
			if res.PDF != "" {
				fmt.Fprintf(out, "Summary: %s\n", res.PDF)
			}
			for _, f := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", f.Error())
			}
			if !res.OK() {
				return fmt.Errorf("%d of %d image(s) could not be exported", len(res.Failed), len(res.Failed)+len(res.Written))
			}
			fmt.Fprintf(out, "Exported %d image(s) to %s\n", len(res.Written), res.Dir)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Parent folder of the export (default from config)")
	cmd.Flags().Bool("pdf", false, "Also write a PDF summary (default from config)")
	cmd.Flags().IntP("quality", "q", 0, "JPEG quality 1-100 (default from config)")
	return cmd
}
