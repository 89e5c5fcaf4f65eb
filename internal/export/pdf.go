/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"aeroinspect/internal/domain"
	"aeroinspect/internal/imageinfo"

	"github.com/jung-kurt/gofpdf"
)

// A4 portrait in points.
const (
	pageW  = 595.28
	pageH  = 841.89
	margin = 36.0
)

// WriteSummaryPDF writes a cover page with the report metadata followed by one
// page per exported image. Captions list annotation counts per author and the
// capture info recorded for the image.
func WriteSummaryPDF(path string, r *domain.Report, items []Item) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(r.Name), false)
	pdf.SetAuthor("AeroInspect", false)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)

	// Cover
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 32, tr(r.Name), "", 1, "L", false, 0, "")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	rows := [][2]string{
		{"Aircraft type", r.AircraftType},
		{"Tail number", r.TailNumber},
		{"Side", r.Side},
		{"Reason", r.Reason},
		{"Inspector", r.Inspector},
		{"Verifier", r.Verifier},
		{"Created", r.CreatedAt.Format("2006-01-02 15:04")},
		{"Images", fmt.Sprint(len(r.Images))},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(120, 18, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 18, tr(row[1]), "", 1, "L", false, 0, "")
	}
	if strings.TrimSpace(r.Notes) != "" {
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 18, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 15, tr(r.Notes), "", "L", false)
	}

	for _, it := range items {
		pdf.AddPage()
		info := pdf.RegisterImageOptions(it.Output, gofpdf.ImageOptions{ImageType: "JPG"})
		if pdf.Err() {
			return fmt.Errorf("pdf image %s: %w", filepath.Base(it.Output), pdf.Error())
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 20, tr(filepath.Base(it.Output)), "", 1, "L", false, 0, "")

		boxW, boxH := pageW-2*margin, pageH-2*margin-90
		w, h := info.Width(), info.Height()
		scale := min(boxW/w, boxH/h)
		w, h = w*scale, h*scale
		y := pdf.GetY() + 4
		pdf.ImageOptions(it.Output, margin+(boxW-w)/2, y, w, h, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")

		pdf.SetXY(margin, y+h+10)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 13, tr(caption(r, it.Source)), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// caption lists annotation counts per author followed by the capture info.
func caption(r *domain.Report, src string) string {
	counts := r.CountByAuthor(src)
	parts := make([]string, 0, len(domain.Authors))
	for _, a := range domain.Authors {
		parts = append(parts, fmt.Sprintf("%s %d", a, counts[a]))
	}
	s := strings.Join(parts, "  |  ")
	if d := imageinfo.Describe(r.ImageInfo[src]); d != "" {
		s += "\n" + d
	}
	return s
}
