// Command bptree is a line-oriented REPL over a persistent B+-tree index.
// It is an external collaborator per the index's design: it translates
// text commands into the tree's public operations and is not part of the
// core contract.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"bptreedb/internal/btree"
	"bptreedb/internal/config"
	"bptreedb/internal/pager"
	"bptreedb/record"
)

var (
	flagData      = flag.String("data", "", "path to the index file (default: bptree.db, or the config file's data_file)")
	flagMem       = flag.Bool("mem", false, "use an in-memory store instead of a file")
	flagConfig    = flag.String("config", "", "optional YAML config file (flags override its values)")
	flagPageSize  = flag.Int("page-size", 0, "page size in bytes, power of two (0 = use config/default)")
	flagBranching = flag.Int("branching", 0, "branching factor B (0 = use config/default)")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.LoadFile(*flagConfig)
		if err != nil {
			log.Fatalf("bptree: %v", err)
		}
		cfg = loaded
	}
	if *flagPageSize != 0 {
		cfg.PageSize = *flagPageSize
	}
	if *flagBranching != 0 {
		cfg.Branching = *flagBranching
	}
	if *flagData != "" {
		cfg.DataFile = *flagData
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("bptree: %v", err)
	}

	var store pager.Store
	if *flagMem {
		store = pager.NewMemoryStore(cfg.PageSize)
	} else {
		fs, err := pager.OpenFileStore(cfg.DataFile, cfg.PageSize)
		if err != nil {
			log.Fatalf("bptree: %v", err)
		}
		defer fs.Close()
		store = fs
	}

	tree, err := btree.Open(store, cfg.Branching)
	if err != nil {
		log.Fatalf("bptree: open: %v", err)
	}

	runREPL(tree)
}

func runREPL(tree *btree.Tree) {
	sc := bufio.NewScanner(os.Stdin)

	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}

	if interactive {
		fmt.Println("bptree REPL. Commands: insert, find, tree, all, exit/quit.")
	}

	for {
		if interactive {
			fmt.Print("bptree> ")
		}
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]

		switch cmd {
		case "insert":
			if err := handleInsert(tree, fields[1:]); err != nil {
				fmt.Println("ERR:", err)
			}
		case "find":
			if err := handleFind(tree, fields[1:]); err != nil {
				fmt.Println("ERR:", err)
			}
		case "tree":
			if err := tree.DebugDump(os.Stdout); err != nil {
				fmt.Println("ERR:", err)
			}
		case "all":
			if err := handleAll(tree); err != nil {
				fmt.Println("ERR:", err)
			}
		case "exit", "quit":
			return
		default:
			fmt.Println("ERR: unknown command:", cmd)
		}
	}
}

func handleInsert(tree *btree.Tree, args []string) error {
	if len(args) != record.Width {
		return fmt.Errorf("insert needs %d fields (key + 6 payload values), got %d", record.Width, len(args))
	}
	vals := make([]int32, record.Width)
	for i, a := range args {
		n, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return fmt.Errorf("field %d (%q): %w", i, a, err)
		}
		vals[i] = int32(n)
	}
	var payload [6]int32
	copy(payload[:], vals[1:])
	return tree.Insert(record.New(payload, vals[0]))
}

func handleFind(tree *btree.Tree, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("find needs exactly 1 key argument, got %d", len(args))
	}
	key, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("key %q: %w", args[0], err)
	}
	rec, ok, err := tree.Find(int32(key))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("not found")
		return nil
	}
	fmt.Println(rec.ToText())
	return nil
}

func handleAll(tree *btree.Tree) error {
	records, err := tree.All()
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Println(rec.ToText())
	}
	return nil
}
