// Command atra is the Atra compiler CLI: compile/parse/dump/run
// subcommands over the same four entry points the atra package exposes
// programmatically, plus an interactive REPL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/atra-lang/atra"
	"github.com/atra-lang/atra/engine"
	"github.com/atra-lang/atra/link"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: atra <compile|parse|dump|run> [-v] [-src string] [file]")
	fmt.Fprintln(os.Stderr, "       atra -i <file>   (interactive REPL)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if os.Args[1] == "-i" {
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: atra -i <file>")
			os.Exit(1)
		}
		if err := runInteractive(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sub := os.Args[1]
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	src := fs.String("src", "", "inline source (overrides the file argument)")
	verbose := fs.Bool("v", false, "enable development logging in engine/link")
	fs.Parse(os.Args[2:])

	if *verbose {
		dev, _ := zap.NewDevelopment()
		engine.SetLogger(dev)
		link.SetLogger(dev)
	}

	source, err := readSource(*src, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch sub {
	case "compile":
		err = doCompile(source)
	case "parse":
		err = doParse(source)
	case "dump":
		err = doDump(source)
	case "run":
		err = doRun(source)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readSource(inline string, args []string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("no source given: pass -src or a file path")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func doCompile(source string) error {
	bytes, table, layouts, err := atra.Compile(source)
	if err != nil {
		return err
	}
	fmt.Printf("compiled %d bytes\n", len(bytes))
	if table != nil {
		fmt.Printf("table slots: %d\n", len(table))
	}
	if layouts != nil {
		fmt.Printf("layouts: %d\n", len(layouts))
	}
	return nil
}

func doParse(source string) error {
	mod, err := atra.Parse(source)
	if err != nil {
		return err
	}
	fmt.Printf("globals=%d imports=%d funcs=%d layouts=%d\n",
		len(mod.Globals), len(mod.Imports), len(mod.Funcs), len(mod.Layouts))
	for _, f := range mod.Funcs {
		kind := "function"
		if f.IsSub {
			kind = "subroutine"
		}
		fmt.Printf("  %s %s (%d params) -> %s\n", kind, f.Name, len(f.Params), f.Return)
	}
	return nil
}

func doDump(source string) error {
	hexText, err := atra.Dump(source)
	if err != nil {
		return err
	}
	fmt.Print(hexText)
	return nil
}

func doRun(source string) error {
	ctx := context.Background()
	inst, err := atra.Run(ctx, source, nil)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("instantiated ok")
		return nil
	}
	fmt.Println("instantiated ok; exports:")
	for name := range inst.Exports() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
