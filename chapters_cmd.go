package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/muesli/gitcha"
	"github.com/spf13/cobra"

	"github.com/ficreader/narrator/utils"
)

var chapterExtensions = []string{
	"*.json", "*.zst", "*.md", "*.mdown", "*.mkdn", "*.mkd", "*.markdown",
}

var chaptersCmd = &cobra.Command{
	Use:     "chapters [DIR]",
	Short:   "Find chapters in a directory",
	Long:    paragraph(fmt.Sprintf("\n%s chapter files below a directory, honoring .gitignore rules.", keyword("Find"))),
	Example: paragraph("narrator chapters\nnarrator chapters ~/books"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = utils.ExpandPath(args[0])
		}
		files, err := findChapters(dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No chapters found.")
			return err
		}
		return writeChapters(cmd.OutOrStdout(), files, time.Now())
	},
}

// chapterFile is a chapter found on disk.
type chapterFile struct {
	Path    string // relative to the searched directory
	Size    int64
	ModTime time.Time
}

func findChapters(dir string) ([]chapterFile, error) {
	cwd, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	info, err := os.Stat(cwd)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	log.Debug("searching for chapters", "cwd", cwd)
	ch, err := gitcha.FindFilesExcept(cwd, chapterExtensions, nil)
	if err != nil {
		return nil, fmt.Errorf("error finding local files: %w", err)
	}

	var files []chapterFile
	for res := range ch {
		rel, err := filepath.Rel(cwd, res.Path)
		if err != nil {
			rel = res.Path
		}
		f := chapterFile{Path: rel}
		if res.Info != nil {
			f.Size = res.Info.Size()
			f.ModTime = res.Info.ModTime()
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func writeChapters(w io.Writer, files []chapterFile, now time.Time) error {
	for _, f := range files {
		_, err := fmt.Fprintf(w, "%-40s %8s  %s\n",
			f.Path,
			humanize.Bytes(uint64(f.Size)), //nolint:gosec
			humanize.RelTime(f.ModTime, now, "ago", "from now"),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
