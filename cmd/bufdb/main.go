// Command bufdb inspects and fills bufdb environments.
//
//	bufdb -config env.yaml stat -table accounts
//	bufdb -engine bolt -path ./data dump -table accounts > accounts.tsv
//	bufdb -engine bolt -path ./data load -table accounts < accounts.tsv
//
// dump and load use one entry per line: hex key, a tab, hex value.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Giulio2002/bufdb"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	engineName := flag.String("engine", "", "engine name (overrides config)")
	path := flag.String("path", "", "environment directory (overrides config)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := bufdb.DefaultConfig()
	cfg.LogLevel = "info"
	if *configPath != "" {
		var err error
		if cfg, err = bufdb.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *engineName != "" {
		cfg.Engine = *engineName
	}
	if *path != "" {
		cfg.Path = *path
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "stat" || cmd == "dump" {
		cfg.ReadOnly = true
	}

	env, err := bufdb.Open(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := env.Logger()

	switch cmd {
	case "stat":
		err = runStat(env, args, os.Stdout)
	case "dump":
		err = runDump(env, args, os.Stdout)
	case "load":
		err = runLoad(env, args, os.Stdin)
	default:
		env.Close()
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", zap.String("cmd", cmd), zap.Error(err))
	}
	env.Close()
	log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: bufdb [flags] <command> [command flags]

Commands:
  stat  -table NAME          print table statistics
  dump  -table NAME          write entries to stdout
  load  -table NAME [-dup]   read entries from stdin

Flags:
`)
	flag.PrintDefaults()
}

// tableFlags parses the flags shared by every subcommand.
func tableFlags(name string, args []string) (table string, dupSort bool, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&table, "table", "", "table name (empty for the main table)")
	fs.BoolVar(&dupSort, "dup", false, "open the table with DupSort")
	err = fs.Parse(args)
	return table, dupSort, err
}

func openTable(env *bufdb.Env, name string, args []string) (*bufdb.Table, error) {
	table, dupSort, err := tableFlags(name, args)
	if err != nil {
		return nil, err
	}
	flags := bufdb.DBDefaults
	if dupSort {
		flags |= bufdb.DupSort
	}
	return env.OpenTable(table, flags)
}

func runStat(env *bufdb.Env, args []string, w io.Writer) error {
	tbl, err := openTable(env, "stat", args)
	if err != nil {
		return err
	}
	st, err := tbl.Stat()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "table:          %q\n", tbl.Name())
	fmt.Fprintf(w, "dupsort:        %v\n", tbl.DupSort())
	fmt.Fprintf(w, "entries:        %d\n", st.Entries)
	fmt.Fprintf(w, "page size:      %d\n", st.PageSize)
	fmt.Fprintf(w, "depth:          %d\n", st.Depth)
	fmt.Fprintf(w, "branch pages:   %d\n", st.BranchPages)
	fmt.Fprintf(w, "leaf pages:     %d\n", st.LeafPages)
	fmt.Fprintf(w, "overflow pages: %d\n", st.OverflowPages)
	return nil
}

func runDump(env *bufdb.Env, args []string, w io.Writer) error {
	tbl, err := openTable(env, "dump", args)
	if err != nil {
		return err
	}
	c, err := tbl.BufferCursor()
	if err != nil {
		return err
	}
	defer c.Close()

	bw := bufio.NewWriter(w)
	ok, err := c.First()
	for ; ok && err == nil; ok, err = c.Next() {
		fmt.Fprintf(bw, "%x\t%x\n", c.Key(), c.Val())
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func runLoad(env *bufdb.Env, args []string, r io.Reader) error {
	tbl, err := openTable(env, "load", args)
	if err != nil {
		return err
	}

	var n int
	err = env.Update(func(txn *bufdb.Txn) error {
		c, err := tbl.OpenCursor(txn, bufdb.Writer)
		if err != nil {
			return err
		}
		defer c.Close()

		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 64<<20)
		for line := 1; sc.Scan(); line++ {
			text := strings.TrimSuffix(sc.Text(), "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			key, val, err := parseEntry(text)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			c.KeyWriteBytes(key).ValWriteBytes(val)
			if err := c.Overwrite(); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			n++
		}
		return sc.Err()
	})
	if err != nil {
		return err
	}
	env.Logger().Info("loaded", zap.String("table", tbl.Name()), zap.Int("entries", n))
	return nil
}

func parseEntry(text string) (key, val []byte, err error) {
	k, v, ok := strings.Cut(text, "\t")
	if !ok {
		return nil, nil, fmt.Errorf("missing tab separator")
	}
	if key, err = hex.DecodeString(k); err != nil {
		return nil, nil, fmt.Errorf("key: %w", err)
	}
	if val, err = hex.DecodeString(v); err != nil {
		return nil, nil, fmt.Errorf("value: %w", err)
	}
	return key, val, nil
}
