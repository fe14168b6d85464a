package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/cachekit/diskcache"
)

// REPL is the interactive command loop, grounded on the same
// liner-driven shape a slot-cache poking tool uses: one open resource,
// a prompt, and a small fixed vocabulary of verbs.
type REPL struct {
	cache *diskcache.Cache
	cfg   Config
	dir   string

	liner *liner.State

	editKey string
	editor  *diskcache.Editor
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".cachekitctl_history")
}

func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("cachekitctl - %s (value_count=%d, max_size=%d)\n", r.dir, r.cfg.ValueCount, r.cfg.MaxSize)
	fmt.Println("Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt(r.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			r.saveHistory()
			return nil
		}

		r.dispatch(cmd, args)
	}

	r.saveHistory()

	return nil
}

func (r *REPL) prompt() string {
	if r.editKey != "" {
		return fmt.Sprintf("cachekitctl(%s)> ", r.editKey)
	}

	return "cachekitctl> "
}

func (r *REPL) dispatch(cmd string, args []string) {
	switch cmd {
	case "help", "?":
		r.printHelp()
	case "get":
		r.cmdGet(args)
	case "edit":
		r.cmdEdit(args)
	case "write":
		r.cmdWrite(args)
	case "commit":
		r.cmdCommit()
	case "abort":
		r.cmdAbort()
	case "remove":
		r.cmdRemove(args)
	case "size":
		r.cmdSize()
	case "flush":
		r.cmdFlush()
	case "close":
		r.cmdClose()
	case "clear", "cls":
		fmt.Print("\033[H\033[2J")
	default:
		fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"get", "edit", "write", "commit", "abort", "remove",
		"size", "flush", "close", "help", "clear", "quit", "exit",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  get <key>                Print every value slot of a readable entry")
	fmt.Println("  edit <key>               Open an editor for key (single editor per key)")
	fmt.Println("  write <idx> <text>       Set a value slot on the open editor")
	fmt.Println("  commit                   Commit the open editor")
	fmt.Println("  abort                    Abort the open editor")
	fmt.Println("  remove <key>             Remove a readable entry")
	fmt.Println("  size                     Print current cache size and budget")
	fmt.Println("  flush                    Trim and compact synchronously")
	fmt.Println("  close                    Close the cache and exit")
	fmt.Println("  help                     Show this help")
	fmt.Println("  quit / exit / q          Exit without closing explicitly")
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")
		return
	}

	snap, err := r.cache.Get(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if snap == nil {
		fmt.Println("(not found)")
		return
	}

	for i := 0; i < snap.ValueCount(); i++ {
		s, err := snap.String(i)
		if err != nil {
			fmt.Printf("  [%d] error: %v\n", i, err)
			continue
		}

		fmt.Printf("  [%d] (%d bytes) %q\n", i, snap.Length(i), s)
	}
}

func (r *REPL) cmdEdit(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: edit <key>")
		return
	}

	if r.editor != nil {
		fmt.Printf("Editor for %q already open; commit or abort it first\n", r.editKey)
		return
	}

	ed, err := r.cache.Edit(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if ed == nil {
		fmt.Printf("%q is already being edited elsewhere\n", args[0])
		return
	}

	r.editor = ed
	r.editKey = args[0]

	fmt.Printf("OK: editing %q\n", args[0])
}

func (r *REPL) cmdWrite(args []string) {
	if r.editor == nil {
		fmt.Println("No editor open; run 'edit <key>' first")
		return
	}

	if len(args) < 2 {
		fmt.Println("Usage: write <idx> <text>")
		return
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Error parsing index: %v\n", err)
		return
	}

	text := strings.Join(args[1:], " ")

	if err := r.editor.SetString(idx, text); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdCommit() {
	if r.editor == nil {
		fmt.Println("No editor open")
		return
	}

	if err := r.editor.Commit(); err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK: committed %q\n", r.editKey)
	}

	r.editor = nil
	r.editKey = ""
}

func (r *REPL) cmdAbort() {
	if r.editor == nil {
		fmt.Println("No editor open")
		return
	}

	if err := r.editor.Abort(); err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK: aborted %q\n", r.editKey)
	}

	r.editor = nil
	r.editKey = ""
}

func (r *REPL) cmdRemove(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: remove <key>")
		return
	}

	if err := r.cache.Remove(args[0]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("OK: removed %q\n", args[0])
}

func (r *REPL) cmdSize() {
	fmt.Printf("Size:     %d bytes\n", r.cache.Size())
	fmt.Printf("MaxSize:  %d bytes\n", r.cache.MaxSize())
}

func (r *REPL) cmdFlush() {
	if err := r.cache.Flush(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("OK: flushed")
}

func (r *REPL) cmdClose() {
	if r.editor != nil {
		_ = r.editor.Abort()
		r.editor = nil
		r.editKey = ""
	}

	if err := r.cache.Close(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("OK: closed")
	os.Exit(0)
}
