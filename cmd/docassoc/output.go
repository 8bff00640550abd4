// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
	"github.com/charmbracelet/lipgloss"
)

var (
	fileStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	locStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	emptyStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("8"))

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

func writeJSON(w io.Writer, results []extract.FileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// writeText renders results for a terminal, one line per doclet.
func writeText(w io.Writer, results []extract.FileResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, fileStyle.Render(r.File)); err != nil {
			return err
		}
		if len(r.Doclets) == 0 {
			fmt.Fprintln(w, "  "+emptyStyle.Render("no doclets"))
			continue
		}
		for _, d := range r.Doclets {
			fmt.Fprintln(w, "  "+docletLine(d))
			if d.ConstructorComment != nil {
				fmt.Fprintln(w, "    "+locStyle.Render("constructor")+" "+docletLine(d.ConstructorComment))
			}
		}
	}
	return nil
}

func docletLine(d *doclet.Doclet) string {
	loc := locStyle.Render(fmt.Sprintf("%4d:%-3d", d.Context.Loc.Start.Line, d.Context.Loc.Start.Column))

	desc := firstLine(d.Description)
	if desc == "" {
		desc = emptyStyle.Render("(undocumented)")
	}

	if len(d.Tags) == 0 {
		return loc + " " + desc
	}
	tags := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		tag := "@" + t.Title
		if t.Name != "" {
			tag += " " + t.Name
		}
		tags = append(tags, tag)
	}
	return loc + " " + desc + " " + tagStyle.Render("["+strings.Join(tags, ", ")+"]")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func writeSummary(w io.Writer, s runStats) {
	body := fmt.Sprintf("files    %d\ndoclets  %d\ncached   %d\nduration %s",
		s.Files, s.Doclets, s.Cached, s.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, summaryStyle.Render(body))
}
