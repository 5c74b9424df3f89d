package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dsurf/surf"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "render":
		if err := runRender(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "patch":
		if err := runPatch(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("surf version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`surf - headless engine for attribute-driven reactive HTML

Usage:
  surf <command> [arguments]

Commands:
  render <url>                 Fetch a SURF page, boot it headlessly, print the settled document
  patch <target=html> [...]    Build a <d-patch> payload from target=content pairs
  version                      Print version
  help                         Show this help

Examples:
  surf render https://example.com/todos
  surf patch '#main=<h1>Hi</h1>' '#toast=<div>Saved</div>'`)
}

func runRender(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("render takes exactly one URL")
	}
	url := args[0]

	eng := surf.New()
	defer eng.Close()

	resp, err := eng.Fetch(url)
	if err != nil {
		return err
	}
	if err := eng.Load(resp, url); err != nil {
		return err
	}
	eng.Wait()
	fmt.Println(eng.Document().HTML())
	return nil
}

func runPatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("patch takes one or more target=content pairs")
	}
	p := surf.NewPatch()
	for _, arg := range args {
		target, content, ok := strings.Cut(arg, "=")
		if !ok || target == "" {
			return fmt.Errorf("malformed pair %q, want target=content", arg)
		}
		p.Add(target, content)
	}
	fmt.Println(p.Render())
	return nil
}
