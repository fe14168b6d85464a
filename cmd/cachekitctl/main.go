// cachekitctl is an operator CLI for poking at a diskcache directory
// directly: open one, inspect entries, and drive edits from a REPL
// without writing a Go program to do it.
//
// Usage:
//
//	cachekitctl open <dir>                      Open an existing cache
//	cachekitctl new [opts] <dir>                 Create a new cache
//
// Options for 'new' (and overrides for 'open'):
//
//	--value-count=N    Value slots per entry (default from config, else 1)
//	--max-size=N       Byte budget (default from config, else 64 MiB)
//	--app-version=N    Journal header app version (default from config, else 1)
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	pflag "github.com/spf13/pflag"

	"github.com/calvinalkan/cachekit/diskcache"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return errors.New("missing command")
	}

	switch args[0] {
	case "open", "new":
		return runOpenOrNew(args[0], args[1:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  cachekitctl open <dir>")
	fmt.Fprintln(os.Stderr, "  cachekitctl new [--value-count=N --max-size=N --app-version=N] <dir>")
}

func runOpenOrNew(cmd string, args []string) error {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)

	valueCount := fs.Int("value-count", 0, "value slots per entry")
	maxSize := fs.Int64("max-size", 0, "byte budget across all entries")
	appVersion := fs.Int("app-version", 0, "journal header app version")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cachekitctl %s [options] <dir>\n\n", cmd)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("missing cache directory")
	}

	dir := fs.Arg(0)

	exists, err := dirHasJournal(dir)
	if err != nil {
		return err
	}

	if cmd == "open" && !exists {
		return fmt.Errorf("no cache found at %s (use 'cachekitctl new %s' to create one)", dir, dir)
	}

	if cmd == "new" && exists {
		return fmt.Errorf("cache already exists at %s (use 'cachekitctl open %s' to open it)", dir, dir)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	overridden := map[string]bool{
		"value-count": fs.Changed("value-count"),
		"max-size":    fs.Changed("max-size"),
		"app-version": fs.Changed("app-version"),
	}

	cfg, err := LoadConfig(workDir, Config{
		ValueCount: *valueCount,
		MaxSize:    *maxSize,
		AppVersion: *appVersion,
	}, overridden, os.Environ())
	if err != nil {
		return err
	}

	c, err := diskcache.Open(diskcache.Options{
		Dir:        dir,
		AppVersion: cfg.AppVersion,
		ValueCount: cfg.ValueCount,
		MaxSize:    cfg.MaxSize,
	})
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	defer c.Close()

	repl := &REPL{cache: c, cfg: cfg, dir: dir}

	return repl.Run()
}

// dirHasJournal reports whether dir already holds a cachekitctl journal,
// distinguishing 'open' (must exist) from 'new' (must not).
func dirHasJournal(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, "journal"))
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}
