package main

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// command is one CLI subcommand.
type command struct {
	summary string
	run     func(args []string, stdout, stderr io.Writer) int
}

var commands = map[string]command{
	"serve":      {"run the HTTP API", runServe},
	"register":   {"register an app from --title and --description", runRegister},
	"preview":    {"show the record a registration would produce", runPreview},
	"list":       {"list registered apps in registration order", runList},
	"deregister": {"remove a registered app by slug", runDeregister},
	"scaffold":   {"write the scaffold of a registered app to disk", runScaffold},
	"export":     {"write the registry to a YAML file", runExport},
	"import":     {"load a registry YAML file", runImport},
	"version":    {"print version and exit", runVersion},
}

func run(args []string, stdout, stderr io.Writer) int {
	name := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		name, args = args[0], args[1:]
	}

	if name == "help" {
		usage(stdout)
		return ExitSuccess
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return ExitUsageError
	}
	return cmd.run(args, stdout, stderr)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: appforge <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "appforge %s (built %s)\n", Version, BuildTime)
	return ExitSuccess
}
