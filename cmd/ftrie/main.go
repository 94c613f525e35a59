// Command ftrie builds and queries the compact blocklist dictionary.
//
// Build a dictionary from a directory of newline-delimited host lists
// (one list per file; ordinals follow the sorted file names):
//
//	ftrie -build -in lists/ -out artifacts/
//
// Query a built dictionary:
//
//	ftrie -query -dir artifacts/ -host www.example.com
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rethinkdns/ftrie/bundle"
	"github.com/rethinkdns/ftrie/codec"
	"github.com/rethinkdns/ftrie/log"
	"github.com/rethinkdns/ftrie/trie"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.buildVersion=v0.2.0 -X main.buildCommit=abc1234"
var (
	buildVersion = "v0.1.0-dev"
	buildCommit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. It accepts the
// CLI arguments (without the program name) and the output streams so it
// can be tested in isolation.
func run(args []string, stdout, stderr io.Writer) int {
	opts, exit, code := parseFlags(args, stderr)
	if exit {
		return code
	}

	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log.SetDefault(log.New(level))
	lg := log.Default().Module("cmd")

	if opts.build {
		if err := runBuild(opts, lg); err != nil {
			lg.Error("build failed", "err", err)
			return 1
		}
		return 0
	}
	if err := runQuery(opts, stdout); err != nil {
		lg.Error("query failed", "err", err)
		return 1
	}
	return 0
}

// runBuild aggregates every *.txt list under opts.in, assigns ordinals by
// sorted file name, and writes the blobs, manifest and catalog to
// opts.out.
func runBuild(opts options, lg *log.Logger) error {
	entries, err := os.ReadDir(opts.in)
	if err != nil {
		return fmt.Errorf("read list dir: %w", err)
	}
	var lists []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			lists = append(lists, e.Name())
		}
	}
	sort.Strings(lists)
	if len(lists) == 0 {
		return fmt.Errorf("no .txt lists under %s", opts.in)
	}
	if len(lists) > codec.MaxTag {
		return fmt.Errorf("%d lists exceed the %d-ordinal tag space", len(lists), codec.MaxTag)
	}

	cfg := trie.DefaultConfig()
	cfg.UseCodec6 = opts.codec6
	cfg.SelectSearch = opts.selectsearch
	cfg.OptFlags = opts.optflags
	cfg.Inspect = opts.inspect
	cfg.Debug = opts.debug

	agg := bundle.NewAggregator(cfg)
	catalog := bundle.FileTag{}
	for ordinal, name := range lists {
		n, err := agg.AddFile(ordinal, filepath.Join(opts.in, name))
		if err != nil {
			return err
		}
		uname := strings.TrimSuffix(name, ".txt")
		catalog[uname] = bundle.ListInfo{Value: ordinal, UName: uname, Entries: n}
		lg.Info("list aggregated", "list", uname, "ordinal", ordinal, "hosts", n)
	}

	bc, err := agg.Build(opts.out, opts.shardSize)
	if err != nil {
		return err
	}
	if err := catalog.Save(filepath.Join(opts.out, "filetag.json")); err != nil {
		return err
	}
	lg.Info("dictionary built",
		"hosts", agg.HostCount(),
		"nodes", bc.NodeCount,
		"tdparts", bc.TDParts)
	return nil
}

// runQuery mounts the artifacts and prints every matching suffix with its
// blocklist names.
func runQuery(opts options, stdout io.Writer) error {
	ft, _, err := bundle.Mount(opts.dir)
	if err != nil {
		return err
	}
	if opts.inspect {
		if err := ft.Dump(stdout); err != nil {
			return err
		}
	}

	catalog, err := bundle.LoadFileTag(filepath.Join(opts.dir, "filetag.json"))
	if err != nil {
		// The catalog is optional; ordinals print numerically without it.
		catalog = bundle.FileTag{}
	}

	res, err := ft.LookupHost(strings.ToLower(opts.host))
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Fprintf(stdout, "%s: no match\n", opts.host)
		return nil
	}

	suffixes := make([]string, 0, len(res))
	for s := range res {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)
	for _, s := range suffixes {
		fmt.Fprintf(stdout, "%s: %s\n", s, strings.Join(catalog.Names(res[s]), " "))
	}
	return nil
}
