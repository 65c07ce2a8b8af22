package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"gzpipe/lib"
	"gzpipe/pkg/config"
	"gzpipe/pkg/core"
	"gzpipe/pkg/logger"
	"gzpipe/pkg/progress"
)

var (
	flagFormat   = pflag.String("format", "", "stream framing: gzip or lz4")
	flagLevel    = pflag.Int("level", -2, "gzip compression level (0-9, -1 for default)")
	flagOutput   = pflag.String("output", "", "output path (single input only)")
	flagConfig   = pflag.String("config", "", "path to a YAML config file")
	flagLogLevel = pflag.String("log-level", "", "log level: debug, info, warn, error")
)

func main() {
	pflag.Usage = printUsage
	pflag.Parse()
	args := pflag.Args()

	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer logger.Log.Sync()

	if err := run(args, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  gzpipe compress input... [--output artifact] [--format gzip|lz4] [--level N]")
	fmt.Println("  gzpipe decompress input [output]")
	fmt.Println("  gzpipe list archive.zip")
	fmt.Println("  gzpipe exists archive.zip entry")
	fmt.Println("  gzpipe remove archive.zip entry")
	fmt.Println("  gzpipe size archive.zip")
	pflag.PrintDefaults()
}

// loadConfig merges flag overrides over the config file (or defaults).
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if *flagFormat != "" {
		cfg.Format = *flagFormat
	}
	if *flagLevel != -2 {
		cfg.Level = *flagLevel
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	return cfg, nil
}

func run(args []string, cfg config.Config) error {
	operation := args[0]
	switch operation {
	case "compress":
		return handleCompress(args[1:], cfg)
	case "decompress":
		return handleDecompress(args[1:])
	case "list":
		return handleList(args[1])
	case "exists":
		return handleExists(args[1:])
	case "remove":
		return handleRemove(args[1:])
	case "size":
		return handleSize(args[1])
	default:
		printUsage()
		return fmt.Errorf("invalid operation: %s", operation)
	}
}

// handleCompress compresses each input into its own artifact. Multiple
// inputs run concurrently, one reactor per driver.
func handleCompress(inputs []string, cfg config.Config) error {
	format, err := core.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	if len(inputs) > 1 && *flagOutput != "" {
		return fmt.Errorf("--output requires a single input")
	}

	progress.Init(0)
	defer progress.Stop()

	var g errgroup.Group
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for _, input := range inputs {
		input := input
		output := *flagOutput
		if output == "" {
			output = input + format.Ext()
		}
		g.Go(func() error {
			return lib.Compress(input, output,
				core.WithFormat(format), core.WithLevel(cfg.Level))
		})
	}
	return g.Wait()
}

func handleDecompress(args []string) error {
	input := args[0]
	output := ""
	if len(args) > 1 {
		output = args[1]
	}

	progress.Init(0)
	defer progress.Stop()

	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return lib.DecompressTree(input)
	}
	return lib.DecompressFile(input, output)
}

func handleList(archive string) error {
	entries, err := lib.ListEntries(archive)
	if err != nil {
		return err
	}
	for _, name := range entries {
		fmt.Println(name)
	}
	return nil
}

func handleExists(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("exists needs an archive and an entry name")
	}
	found, err := lib.EntryExists(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Println(strconv.FormatBool(found))
	return nil
}

func handleRemove(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("remove needs an archive and an entry name")
	}

	progress.Init(0)
	defer progress.Stop()

	return lib.RemoveEntry(args[0], args[1])
}

func handleSize(archive string) error {
	size, err := lib.ArchiveSize(archive)
	if err != nil {
		return err
	}
	fmt.Println(size)
	return nil
}
