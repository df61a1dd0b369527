package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const untitled = "(untitled)"

func validFormat(format string) bool {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return true
	}
	return false
}

// workflowRow is the serialized form used by the json and yaml outputs.
type workflowRow struct {
	ID        string  `json:"id" yaml:"id"`
	Name      *string `json:"name" yaml:"name"`
	UpdatedAt *string `json:"updatedAt" yaml:"updated_at"`
}

func toRows(items []*models.SidebarWorkflow) []workflowRow {
	rows := make([]workflowRow, 0, len(items))
	for _, w := range items {
		row := workflowRow{ID: w.ID.String(), Name: w.Name}
		if w.UpdatedAt != nil {
			ts := w.UpdatedAt.UTC().Format(time.RFC3339)
			row.UpdatedAt = &ts
		}
		rows = append(rows, row)
	}
	return rows
}

func writeWorkflows(w io.Writer, format string, items []*models.SidebarWorkflow) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRows(items))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRows(items)); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tUPDATED")
		for _, wf := range items {
			updated := "-"
			if wf.UpdatedAt != nil {
				updated = wf.UpdatedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", wf.ID, workflowName(wf), updated)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, countNoun(int64(len(items)), "workflow"))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func workflowName(w *models.SidebarWorkflow) string {
	if w.Name == nil || *w.Name == "" {
		return untitled
	}
	return *w.Name
}

// countNoun renders "1 workflow" or "3 workflows". Only the last word is pluralized.
func countNoun(n int64, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	words := strings.Fields(noun)
	if len(words) == 0 {
		return fmt.Sprintf("%d", n)
	}
	words[len(words)-1] = inflection.Plural(words[len(words)-1])
	return fmt.Sprintf("%d %s", n, strings.Join(words, " "))
}

// writePruned reports what sessions prune removed. With list set, every row
// is shown with its owner and expiry; the credentials themselves never are.
func writePruned(w io.Writer, sessions []*models.Session, tokens []*models.VerificationToken, list bool) error {
	if list && len(sessions)+len(tokens) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tOWNER\tEXPIRED")
		for _, s := range sessions {
			fmt.Fprintf(tw, "session\t%s\t%s\n", s.UserID, s.Expires.UTC().Format(time.RFC3339))
		}
		for _, t := range tokens {
			fmt.Fprintf(tw, "verification token\t%s\t%s\n", t.Identifier, t.Expires.UTC().Format(time.RFC3339))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Removed %s and %s\n",
		countNoun(int64(len(sessions)), "expired session"),
		countNoun(int64(len(tokens)), "verification token"))
	return err
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
