// Command lsmsh is a minimal interactive shell over an lsm.Engine.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"lsmtree/lsm"
)

func main() {
	dataDir := flag.String("data", "./data", "data directory")
	flag.Parse()

	engine, err := lsm.Open(lsm.WithDataDir(*dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lsmsh: open: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("lsmsh - type 'quit' to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if err := dispatch(engine, scanner.Text()); err != nil {
			if err == errQuit {
				break
			}
			fmt.Println("error:", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func dispatch(engine *lsm.Engine, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "put":
		if len(fields) < 3 {
			return fmt.Errorf("usage: put <key> <value>")
		}
		value := strings.Join(fields[2:], " ")
		return engine.Put(fields[1], value)

	case "get":
		if len(fields) != 2 {
			return fmt.Errorf("usage: get <key>")
		}
		value, ok, err := engine.Get(fields[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(absent)")
			return nil
		}
		fmt.Println(value)
		return nil

	case "delete":
		if len(fields) != 2 {
			return fmt.Errorf("usage: delete <key>")
		}
		return engine.Delete(fields[1])

	case "scan":
		if len(fields) != 3 {
			return fmt.Errorf("usage: scan <lo> <hi>")
		}
		entries, err := engine.Scan(fields[1], fields[2])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s = %s\n", e.Key, e.Value)
		}
		return nil

	case "flush":
		return engine.Flush()

	case "stats":
		stats, err := engine.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("memtable: %d entries, %d bytes\n", stats.MemTableEntries, stats.MemTableBytes)
		for _, l := range stats.Levels {
			fmt.Printf("level %d: %d tables, %d bytes\n", l.Level, l.TableCount, l.TotalBytes)
		}
		return nil

	case "inspect":
		limit := 20
		if len(fields) == 2 {
			fmt.Sscanf(fields[1], "%d", &limit)
		}
		entries, err := engine.Inspect(limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s = %s\n", e.Key, e.Value)
		}
		return nil

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command: %s", fields[0])
	}
}
