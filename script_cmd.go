package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ficreader/narrator/internal/config"
	"github.com/ficreader/narrator/internal/host"
	"github.com/ficreader/narrator/internal/script"
)

var rawScript bool

var scriptCmd = &cobra.Command{
	Use:     "script CHAPTER",
	Short:   "Print the chunks a chapter is read as",
	Long:    paragraph(fmt.Sprintf("\n%s the script of a chapter: every chunk in reading order, with its kind and the paragraph breaks.", keyword("Print"))),
	Example: paragraph("narrator script chapter.json\nnarrator script --raw chapter.md"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromViper(nil)
		if err != nil {
			return err
		}
		loader, closeLoader := newChapterLoader(cfg)
		ch, err := loader.Load(cmd.Context(), args[0])
		closeLoader()
		if err != nil {
			return err
		}

		out := formatScript(script.Build(ch.Title, ch.HTML))
		if !rawScript && term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
			if out, err = renderMarkdown(out); err != nil {
				return err
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	scriptCmd.Flags().BoolVar(&rawScript, "raw", false, "print markdown without rendering it")
}

// formatScript renders a script as a markdown table followed by totals.
func formatScript(s script.Script) string {
	var b strings.Builder
	title := script.UntitledHeading
	if len(s) > 0 {
		title = s[0].Text
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("| # | kind | text | break |\n|---:|---|---|:---:|\n")

	var est time.Duration
	for i, c := range s {
		brk := ""
		if c.BreaksAfter {
			brk = "¶"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i, c.Kind, escapeCell(c.Text), brk)
		est += host.EstimateDuration(c.Text, 1)
	}

	st := s.Stats()
	now := time.Now()
	fmt.Fprintf(&b, "\n%s chunks in %s paragraphs: %s narration, %s dialog, %s words, about %s aloud.\n",
		humanize.Comma(int64(st.Chunks)),
		humanize.Comma(int64(st.Blocks)),
		humanize.Comma(int64(st.Narration)),
		humanize.Comma(int64(st.Dialog)),
		humanize.Comma(int64(st.Words)),
		strings.TrimSpace(humanize.RelTime(now, now.Add(est), "", "")),
	)
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func renderMarkdown(md string) (string, error) {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 { //nolint:gosec
		width = min(w, 120)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}
