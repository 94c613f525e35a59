package main

import (
	"flag"
	"fmt"
	"io"
)

// options holds the parsed command line.
type options struct {
	build bool
	query bool

	in   string // directory of newline-delimited host lists
	out  string // artifact directory to write
	dir  string // artifact directory to query
	host string

	codec6       bool
	selectsearch bool
	optflags     bool
	inspect      bool
	debug        bool
	shardSize    int
	logLevel     string
}

// parseFlags parses args (without the program name). On -version or a
// parse error it reports exit=true with the code to return.
func parseFlags(args []string, stderr io.Writer) (opts options, exit bool, code int) {
	fs := flag.NewFlagSet("ftrie", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&opts.build, "build", false, "build a dictionary from host lists")
	fs.BoolVar(&opts.query, "query", false, "look a host up in a built dictionary")

	fs.StringVar(&opts.in, "in", "", "directory of host list files (build)")
	fs.StringVar(&opts.out, "out", "", "artifact output directory (build)")
	fs.StringVar(&opts.dir, "dir", "", "artifact directory (query)")
	fs.StringVar(&opts.host, "host", "", "host name to look up (query)")

	fs.BoolVar(&opts.codec6, "codec6", true, "use the 6-bit letter alphabet")
	fs.BoolVar(&opts.selectsearch, "selectsearch", true, "use the select-as-rank directory layout")
	fs.BoolVar(&opts.optflags, "optflags", true, "inline small tag sets as raw ordinals")
	fs.BoolVar(&opts.inspect, "inspect", false, "dump trie diagnostics")
	fs.BoolVar(&opts.debug, "debug", false, "verbose builder logging")
	fs.IntVar(&opts.shardSize, "shardsize", 0, "trie shard size in bytes (0 = default)")
	fs.StringVar(&opts.logLevel, "loglevel", "info", "log level: debug, info, warn, error")

	version := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, true, 2
	}
	if *version {
		fmt.Fprintf(stderr, "ftrie %s (%s)\n", buildVersion, buildCommit)
		return opts, true, 0
	}
	if opts.build == opts.query {
		fmt.Fprintln(stderr, "ftrie: exactly one of -build or -query is required")
		fs.Usage()
		return opts, true, 2
	}
	if opts.build && (opts.in == "" || opts.out == "") {
		fmt.Fprintln(stderr, "ftrie: -build requires -in and -out")
		return opts, true, 2
	}
	if opts.query && (opts.dir == "" || opts.host == "") {
		fmt.Fprintln(stderr, "ftrie: -query requires -dir and -host")
		return opts, true, 2
	}
	return opts, false, 0
}
