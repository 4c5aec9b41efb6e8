package main

import (
	"os"

	"github.com/woozymasta/geojsonkit/internal/logger"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	addCommands(parser)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func addCommands(parser *flags.Parser) {
	commands := []struct {
		data  any
		name  string
		short string
		long  string
	}{
		{&MergeCommand{}, "merge", "Merge GeoJSON files", "Merge GeoJSON files into one collection, dropping duplicate geometries. Each input is a merge source keyed by its path as given."},
		{&CompareCommand{}, "compare", "Compare two GeoJSON files", "Compare two GeoJSON files by geometry hash and print a report."},
		{&SplitCommand{}, "split", "Split a GeoJSON file", "Split a GeoJSON file into N chunk files of near-equal size."},
		{&PreviewCommand{}, "preview", "Render a WebP preview", "Render the outlines of a GeoJSON file into a square WebP thumbnail."},
		{&MinifyCommand{}, "minify", "Minify GeoJSON files", "Strip insignificant whitespace from GeoJSON files, keeping numbers verbatim."},
	}

	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			panic(err)
		}
	}
}
