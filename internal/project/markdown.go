package project

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// historyTimeLayout is the timestamp format written in front of history entries.
const historyTimeLayout = "2006-01-02 15:04"

type section int

const (
	sectionNone section = iota
	sectionModules
	sectionGoal
	sectionHistory
)

// Parse reads a PROJECT.md document. Missing sections yield empty fields;
// malformed table rows and unknown enum values are errors.
func Parse(r io.Reader) (*Descriptor, error) {
	d := &Descriptor{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	current := sectionNone
	lineNo := 0
	tableRow := 0
	var goalLines []string

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "# "):
			d.Name = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(trimmed, "# "), "Project:"))
			current = sectionNone
			continue
		case strings.HasPrefix(trimmed, "## "):
			heading := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")))
			switch heading {
			case "modules":
				current = sectionModules
				tableRow = 0
			case "current goal":
				current = sectionGoal
			case "history":
				current = sectionHistory
			default:
				current = sectionNone
			}
			continue
		}

		switch current {
		case sectionModules:
			if !strings.HasPrefix(trimmed, "|") {
				continue
			}
			tableRow++
			if tableRow <= 2 {
				continue // header and separator rows
			}
			mod, err := parseModuleRow(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if seen[mod.Name] {
				return nil, fmt.Errorf("line %d: duplicate module %q", lineNo, mod.Name)
			}
			seen[mod.Name] = true
			d.Modules = append(d.Modules, mod)

		case sectionGoal:
			if trimmed != "" {
				goalLines = append(goalLines, trimmed)
			}

		case sectionHistory:
			if !strings.HasPrefix(trimmed, "- ") {
				continue
			}
			d.History = append(d.History, parseHistoryLine(strings.TrimPrefix(trimmed, "- ")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	goal := strings.Join(goalLines, " ")
	if !strings.EqualFold(goal, "none") {
		d.CurrentGoal = goal
	}

	return d, nil
}

// parseModuleRow parses one data row of the module table.
func parseModuleRow(line string) (Module, error) {
	cells := splitRow(line)
	if len(cells) != 4 {
		return Module{}, fmt.Errorf("module row needs 4 columns (module, path, status, level), got %d", len(cells))
	}

	name := cells[0]
	if name == "" {
		return Module{}, fmt.Errorf("module name must not be empty")
	}

	status, err := ParseStatus(cells[2])
	if err != nil {
		return Module{}, err
	}
	level, err := ParseLevel(cells[3])
	if err != nil {
		return Module{}, err
	}

	return Module{
		Name:        name,
		PathPattern: cells[1],
		Status:      status,
		Level:       level,
	}, nil
}

// splitRow splits a markdown table row into trimmed cells.
func splitRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// parseHistoryLine parses a history list item. Entries are free prose; a
// leading "YYYY-MM-DD HH:MM —" timestamp is recognized when present.
func parseHistoryLine(text string) HistoryEntry {
	for _, sep := range []string{" — ", " - "} {
		if idx := strings.Index(text, sep); idx > 0 {
			if ts, err := time.ParseInLocation(historyTimeLayout, strings.TrimSpace(text[:idx]), time.Local); err == nil {
				return HistoryEntry{Timestamp: ts, Summary: strings.TrimSpace(text[idx+len(sep):])}
			}
		}
	}
	return HistoryEntry{Summary: strings.TrimSpace(text)}
}

// Render writes the descriptor back as markdown. Output is deterministic so
// a parse/render cycle is stable.
func Render(d *Descriptor) []byte {
	var buf bytes.Buffer

	name := d.Name
	if name == "" {
		name = "Untitled"
	}
	fmt.Fprintf(&buf, "# Project: %s\n\n", name)

	buf.WriteString("## Modules\n\n")
	if len(d.Modules) == 0 {
		buf.WriteString("_No modules registered._\n")
	} else {
		widths := columnWidths(d.Modules)
		writeRow(&buf, widths, "Module", "Path", "Status", "Level")
		writeSeparator(&buf, widths)
		for _, m := range d.Modules {
			writeRow(&buf, widths, m.Name, m.PathPattern, string(m.Status), string(m.Level))
		}
	}

	buf.WriteString("\n## Current Goal\n\n")
	if d.CurrentGoal == "" {
		buf.WriteString("None\n")
	} else {
		buf.WriteString(d.CurrentGoal + "\n")
	}

	buf.WriteString("\n## History\n\n")
	for _, h := range d.History {
		if h.Timestamp.IsZero() {
			fmt.Fprintf(&buf, "- %s\n", h.Summary)
		} else {
			fmt.Fprintf(&buf, "- %s — %s\n", h.Timestamp.Format(historyTimeLayout), h.Summary)
		}
	}

	return buf.Bytes()
}

func columnWidths(modules []Module) [4]int {
	widths := [4]int{len("Module"), len("Path"), len("Status"), len("Level")}
	for _, m := range modules {
		cells := [4]string{m.Name, m.PathPattern, string(m.Status), string(m.Level)}
		for i, c := range cells {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}
	return widths
}

func writeRow(buf *bytes.Buffer, widths [4]int, cells ...string) {
	buf.WriteString("|")
	for i, c := range cells {
		fmt.Fprintf(buf, " %-*s |", widths[i], c)
	}
	buf.WriteString("\n")
}

func writeSeparator(buf *bytes.Buffer, widths [4]int) {
	buf.WriteString("|")
	for _, w := range widths {
		buf.WriteString(strings.Repeat("-", w+2))
		buf.WriteString("|")
	}
	buf.WriteString("\n")
}
