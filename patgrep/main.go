package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/mfroeh/satlex/pattern"
)

var submatchColors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgMagenta),
	color.New(color.FgCyan),
}

type options struct {
	Pattern  string   `arg:"" name:"pattern" help:"Pattern to search for" type:"string"`
	Paths    []string `arg:"" optional:"" name:"path" help:"Paths to search" type:"path"`
	NoColor  bool     `name:"no-color" help:"Disable colored output." env:"PATGREP_NO_COLOR"`
	MaxCount int      `name:"max-count" help:"Maximum number of matches per line, -1 for all." default:"-1" env:"PATGREP_MAX_COUNT"`
	Groups   bool     `name:"groups" help:"Print the span of every capture group instead of highlighting them." env:"PATGREP_GROUPS"`
}

var cli options

func main() {
	kong.Parse(&cli,
		kong.Name("patgrep"),
		kong.Description("Recursively searches the current directory for lines matching a pattern."),
		kong.UsageOnError(),
	)

	if cli.NoColor {
		color.NoColor = true
	}

	prog, err := pattern.Compile(cli.Pattern)
	if err != nil {
		log.Fatalf("failed to build pattern: %v", err)
	}

	if len(cli.Paths) == 0 {
		cli.Paths = []string{"."}
	}

	s := newSearcher(afero.NewOsFs(), prog, color.Output)
	s.maxCount = cli.MaxCount
	s.groups = cli.Groups

	for _, path := range cli.Paths {
		if err := s.searchPath(path); err != nil {
			log.Fatalf("%v", err)
		}
	}
}

type searcher struct {
	fs       afero.Fs
	prog     *pattern.Program
	out      io.Writer
	maxCount int
	groups   bool

	// reused across lines so that searching a line does not allocate
	found []pattern.Located
}

func newSearcher(afs afero.Fs, prog *pattern.Program, out io.Writer) *searcher {
	return &searcher{
		fs:       afs,
		prog:     prog,
		out:      out,
		maxCount: -1,
		found:    make([]pattern.Located, 0, 16),
	}
}

func (s *searcher) searchPath(path string) error {
	info, err := s.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if info.IsDir() {
		return s.recursivelySearchDir(path)
	}
	return s.searchFile(path)
}

func (s *searcher) recursivelySearchDir(root string) error {
	return afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		// resolve symlinks, they may be broken or point to a directory
		if info.Mode()&fs.ModeSymlink != 0 {
			info, err = s.fs.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if info.IsDir() {
				return nil
			}
		}

		return s.searchFile(path)
	})
}

func (s *searcher) searchFile(path string) error {
	content, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}

	printFileHeader := false
	for i, line := range bytes.Split(content, []byte("\n")) {
		s.found = s.prog.FindAll(line, s.maxCount, s.found[:0])
		if len(s.found) == 0 {
			continue
		}

		if !printFileHeader {
			printFileHeader = true
			fmt.Fprintf(s.out, "%s:\n", path)
		}

		if s.groups {
			fmt.Fprintf(s.out, "%d:%s\n", i+1, formatSpans(line, s.found))
			continue
		}

		out := strings.Builder{}
		lastMatchEnd := 0
		for _, loc := range s.found {
			out.Write(line[lastMatchEnd:loc.Start])
			out.WriteString(formatMatch(line, loc))
			lastMatchEnd = loc.Start + loc.Match.Consumed
		}
		out.Write(line[lastMatchEnd:])
		fmt.Fprintf(s.out, "%d:%s\n", i+1, out.String())
	}

	if printFileHeader {
		fmt.Fprintln(s.out)
	}

	return nil
}

// formatMatch colours the match, each capture group in its own colour. Nested
// groups take the colour of their outermost group.
func formatMatch(line []byte, loc pattern.Located) string {
	full := line[loc.Start : loc.Start+loc.Match.Consumed]
	if loc.Match.GroupsMatched == 1 || loc.Match.GroupsMatched > len(submatchColors) {
		return submatchColors[0].Sprint(string(full))
	}

	out := strings.Builder{}
	matchOff := 0
	for i := 1; i < loc.Match.GroupsMatched; i++ {
		sm := loc.Match.Groups[i]
		if sm.Begin < matchOff {
			continue
		}
		submatchColors[0].Fprint(&out, string(full[matchOff:sm.Begin]))
		submatchColors[i].Fprint(&out, string(full[sm.Begin:sm.End]))
		matchOff = sm.End
	}
	submatchColors[0].Fprint(&out, string(full[matchOff:]))
	return out.String()
}

// formatSpans lists every group of every match as [begin,end)"text", with
// offsets into line.
func formatSpans(line []byte, found []pattern.Located) string {
	var matches []string
	for _, loc := range found {
		var spans []string
		for i := 0; i < loc.Match.GroupsMatched; i++ {
			g, _ := loc.Group(i)
			spans = append(spans, fmt.Sprintf("[%d,%d)%q", g.Begin, g.End, line[g.Begin:g.End]))
		}
		matches = append(matches, strings.Join(spans, " "))
	}
	return strings.Join(matches, " | ")
}
