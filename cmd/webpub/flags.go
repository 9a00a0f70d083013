package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// sectionDepthSentinel detects if --section-depth was explicitly set.
// Since 0 is a valid depth (entries only, no sections), we use an
// out-of-range sentinel as the flag default.
const sectionDepthSentinel = -1

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// tocFlags holds table of contents flags.
type tocFlags struct {
	title    string
	path     string
	document string
	depth    int
}

// assetFlags holds asset-related flags (style name, custom asset path).
type assetFlags struct {
	style     string
	assetPath string
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common          commonFlags
	output          string
	workers         int
	title           string
	date            string
	manifest        string
	continueOnError bool
	toc             tocFlags
	assets          assetFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed progress")
}

// addTocFlags adds table of contents flags to a FlagSet.
func addTocFlags(fs *flag.FlagSet, f *tocFlags) {
	fs.StringVar(&f.title, "toc-title", "", "contents page heading")
	fs.StringVar(&f.path, "toc-path", "", "output path of the generated contents page")
	fs.StringVar(&f.document, "toc-document", "", "manuscript target that serves as the contents page")
	fs.IntVar(&f.depth, "section-depth", sectionDepthSentinel, "max section depth in the contents (0 = entries only)")
}

// addAssetFlags adds asset flags to a FlagSet.
func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.style, "style", "", "stylesheet name")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string) (*buildFlags, []string, error) {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	f := &buildFlags{}

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.title, "title", "t", "", "publication title")
	fs.StringVar(&f.date, "date", "", `publication date: literal, "auto", or "auto:FORMAT"`)
	fs.StringVar(&f.manifest, "manifest-path", "", "output path of the publication manifest")
	fs.BoolVar(&f.continueOnError, "continue-on-error", false, "skip manuscripts that fail instead of aborting")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addTocFlags(fs, &f.toc)
	addAssetFlags(fs, &f.assets)

	fs.Usage = func() { printBuildUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
