/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"path"
	"strings"

	"aeroinspect/internal/domain"
)

const appTitle = "AeroInspect"

func windowTitle(report string, dirty bool) string {
	if report == "" {
		return appTitle
	}
	t := appTitle + " - " + report
	if dirty {
		t += " *"
	}
	return t
}

// imageLabel is the list caption of a report image.
func imageLabel(p string, marks int) string {
	name := path.Base(p)
	if marks == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, marks)
}

// statusLine summarises the active image for the status bar.
func statusLine(p string, info domain.ImageInfo, anns []*domain.Annotation, zoom float64) string {
	if p == "" {
		return "No image selected"
	}
	parts := []string{path.Base(p)}
	if info.Width > 0 && info.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", info.Width, info.Height))
	}
	if cam := strings.TrimSpace(info.Make + " " + info.Model); cam != "" {
		parts = append(parts, cam)
	}
	if !info.Taken.IsZero() {
		parts = append(parts, info.Taken.Format("2006-01-02 15:04"))
	}
	counts := map[domain.Author]int{}
	for _, a := range anns {
		counts[a.Author]++
	}
	parts = append(parts, fmt.Sprintf("Inspector %d  Verifier %d  AI %d",
		counts[domain.Inspector], counts[domain.Verifier], counts[domain.AI]))
	parts = append(parts, fmt.Sprintf("%.0f%%", zoom*100))
	return strings.Join(parts, "  |  ")
}

// roleLabel maps authors to the labels of the role selector.
func roleLabel(a domain.Author) string {
	switch a {
	case domain.Inspector:
		return "Inspector"
	case domain.Verifier:
		return "Verifier"
	case domain.AI:
		return "AI"
	}
	return string(a)
}

func roleFromLabel(s string) domain.Author {
	for _, a := range []domain.Author{domain.Inspector, domain.Verifier, domain.AI} {
		if roleLabel(a) == s {
			return a
		}
	}
	return ""
}
