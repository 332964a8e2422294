package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/b3tree/b3tree/btree"
	"github.com/b3tree/b3tree/db"
	"github.com/b3tree/b3tree/pkg/config"
)

func main() {
	var (
		dataFile = flag.String("data-file", "./b3tree.db", "path to the store's single data file")
		confPath = flag.String("config", "", "optional YAML config file (overrides the flag defaults)")
	)
	flag.Parse()

	log.SetOutput(io.Discard)
	appLog := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(*confPath)
	if err != nil {
		appLog.Fatalf("load config: %v", err)
	}
	if cfg.DataFile == "" {
		cfg.DataFile = *dataFile
	}

	store, isNew, err := openOrCreate(cfg)
	if err != nil {
		appLog.Fatalf("open db: %v", err)
	}
	defer store.Close()

	if isNew {
		fmt.Printf("created new store at %s (num_keys=%d key_size=%d data_size=%d)\n",
			cfg.DataFile, cfg.NumKeys, cfg.KeySize, cfg.DataSize)
	} else {
		fmt.Printf("opened existing store at %s\n", cfg.DataFile)
	}

	rl, err := readline.New("b3tree> ")
	if err != nil {
		appLog.Fatalf("readline: %v", err)
	}
	defer rl.Close()

	fmt.Println("b3tree - persistent ordered key-value B-tree store")
	fmt.Println("Type 'help' for available commands")
	runREPL(rl, store)
}

func openOrCreate(cfg config.Config) (*db.DB, bool, error) {
	if _, err := os.Stat(cfg.DataFile); err == nil {
		store, err := db.Open(cfg.DataFile)
		return store, false, err
	}
	store, err := db.Create(cfg.DataFile, cfg.NumKeys, cfg.KeySize, cfg.DataSize)
	return store, true, err
}

func runREPL(rl *readline.Instance, store *db.DB) {
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			fmt.Println("Goodbye!")
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			printHelp()
		case "get":
			if len(parts) != 2 {
				fmt.Println("Usage: get <key>")
				continue
			}
			val, err := store.Get([]byte(parts[1]))
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("%s\n", val)
		case "put":
			if len(parts) < 3 {
				fmt.Println("Usage: put <key> <value>")
				continue
			}
			value := strings.Join(parts[2:], " ")
			if err := store.Put([]byte(parts[1]), []byte(value)); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("OK")
		case "delete":
			if len(parts) != 2 {
				fmt.Println("Usage: delete <key>")
				continue
			}
			if err := store.Delete([]byte(parts[1])); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println("OK")
		case "contains":
			if len(parts) != 2 {
				fmt.Println("Usage: contains <key>")
				continue
			}
			ok, err := store.Contains([]byte(parts[1]))
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println(ok)
		case "len":
			n, err := store.Len()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println(n)
		case "iter", "iter-reverse":
			reverse := parts[0] == "iter-reverse"
			if err := printIter(store, reverse); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "stats":
			stats, err := store.Stats()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			printStats(stats)
		case "check":
			ok, err := store.CheckConsistency()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println(ok)
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Printf("Unknown command: %s\n", parts[0])
			printHelp()
		}
	}
}

func printIter(store *db.DB, reverse bool) error {
	it, err := store.Iterator()
	if reverse {
		it, err = store.ReverseIterator()
	}
	if err != nil {
		return err
	}
	for it.Next() {
		fmt.Printf("%s = %s\n", it.Key(), it.Value())
	}
	return it.Err()
}

func printStats(s btree.Stats) {
	fmt.Printf("%+v\n", s)
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  get <key>              - Get a value")
	fmt.Println("  put <key> <value>      - Put a key-value pair")
	fmt.Println("  delete <key>           - Delete a key")
	fmt.Println("  contains <key>         - Test membership")
	fmt.Println("  len                    - Print the key count")
	fmt.Println("  iter, iter-reverse     - Print all keys in order")
	fmt.Println("  stats                  - Print engine counters")
	fmt.Println("  check                  - Run the consistency checker")
	fmt.Println("  help                   - Show this help message")
	fmt.Println("  exit, quit             - Exit the program")
}
