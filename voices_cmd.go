package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/ficreader/narrator/internal/config"
	"github.com/ficreader/narrator/internal/host"
	"github.com/ficreader/narrator/internal/voice"
	"github.com/ficreader/narrator/utils"
)

var voiceFilter string

var voicesCmd = &cobra.Command{
	Use:     "voices",
	Short:   "List the available voices, best first",
	Long:    paragraph(fmt.Sprintf("\n%s the synthesizer voices and the catalog voices in the order narrator picks them. The first voice reads the story, the second reads the dialog.", keyword("List"))),
	Example: paragraph("narrator voices\nnarrator voices --filter natural"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadFromViper(nil)
		if err != nil {
			return err
		}

		var listed []voice.Descriptor
		if flavor, err := selectFlavor(cfg.Host.Command); err != nil {
			log.Warn("No synthesizer voices", "error", err)
		} else {
			listed = listVoices(cmd.Context(), flavor)
		}

		path := cfg.Voice.Catalog
		if path != "" {
			path = utils.ExpandPath(path)
		}
		c, err := host.NewCatalog(listed, path)
		if err != nil {
			return err
		}

		prefs := cfg.Preferences()
		ranked := filterVoices(voice.Rank(c.Voices(), prefs), voiceFilter)
		if len(ranked) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No voices found.")
			return err
		}
		return writeVoices(cmd.OutOrStdout(), ranked, prefs)
	},
}

func init() {
	voicesCmd.Flags().StringVarP(&voiceFilter, "filter", "f", "", "fuzzy filter on voice name and language")
}

// filterVoices keeps the voices whose name and language fuzzily match q,
// in their original order.
func filterVoices(voices []voice.Descriptor, q string) []voice.Descriptor {
	q = strings.TrimSpace(q)
	if q == "" {
		return voices
	}

	targets := make([]string, len(voices))
	for i, v := range voices {
		targets[i] = v.Name + " " + v.Lang
	}
	keep := make(map[int]bool)
	for _, m := range fuzzy.Find(q, targets) {
		keep[m.Index] = true
	}

	out := make([]voice.Descriptor, 0, len(keep))
	for i, v := range voices {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

// writeVoices prints one aligned row per voice. The score column shows the
// failed criteria as bits, most important first.
func writeVoices(w io.Writer, voices []voice.Descriptor, prefs voice.Preferences) error {
	nameWidth := runewidth.StringWidth("NAME")
	for _, v := range voices {
		nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
	}

	header := fmt.Sprintf("%-4s %-8s %s  %-10s %s\n", "#", "SCORE", runewidth.FillRight("NAME", nameWidth), "LANG", "FLAGS")
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for i, v := range voices {
		_, err := fmt.Fprintf(w, "%-4d %08b %s  %-10s %s\n",
			i+1,
			voice.Score(v, prefs),
			runewidth.FillRight(v.Name, nameWidth),
			v.Lang,
			voiceFlags(v),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func voiceFlags(v voice.Descriptor) string {
	var flags []string
	if v.Default {
		flags = append(flags, "default")
	}
	if v.Local {
		flags = append(flags, "local")
	}
	return strings.Join(flags, ",")
}
