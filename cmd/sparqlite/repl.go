package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/wbrown/sparqlite/exec"
	"github.com/wbrown/sparqlite/internal/trace"
	"github.com/wbrown/sparqlite/sparql"
)

// runREPL implements the interactive shell: .exit/.help dot-commands,
// .verbose/.explain toggles, and .stats for a quick look at the
// planner's view of the store.
func runREPL(e *engine) {
	fmt.Println("=== sparqlite interactive mode ===")
	fmt.Println("Commands:")
	fmt.Println("  .help      - show this message")
	fmt.Println("  .exit      - exit")
	fmt.Println("  .verbose   - toggle execution trace output")
	fmt.Println("  .explain   - toggle explain-only mode")
	fmt.Println("  .stats     - show planner statistics")
	fmt.Println("  <SPARQL>   - run a query or update")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	explain := false

	for {
		printPrompt(e.useColor)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case ".exit":
			return
		case ".help":
			fmt.Println("Enter a SPARQL query or update, or one of the dot-commands above.")
			continue
		case ".verbose":
			e.verbose = !e.verbose
			fmt.Printf("verbose: %v\n", e.verbose)
			continue
		case ".explain":
			explain = !explain
			fmt.Printf("explain: %v\n", explain)
			continue
		case ".stats":
			printStats(e)
			continue
		}

		stmt := drainLine(scanner, line)
		runREPLStatement(e, stmt, explain)
	}
}

func printPrompt(useColor bool) {
	if useColor {
		fmt.Print(color.CyanString("sparql> "))
	} else {
		fmt.Print("sparql> ")
	}
}

func printStats(e *engine) {
	if e.stats == nil {
		fmt.Println("no statistics collected")
		return
	}
	fmt.Printf("triples: %d  distinct subjects: %d  distinct objects: %d  distinct predicates: %d\n",
		e.stats.TotalTriples, e.stats.DistinctSubjects, e.stats.DistinctObjects, e.stats.DistinctPredicates)
}

func runREPLStatement(e *engine, stmt string, explain bool) {
	ctx := e.newContext(context.Background())
	if e.verbose {
		ctx.Trace = trace.NewCollector()
	}
	start := time.Now()

	if cq, err := sparql.ParseQuery(stmt); err == nil {
		result, err := exec.Execute(ctx, cq, exec.Options{Explain: explain, Stats: e.stats, Cache: e.cache})
		if err != nil {
			printErr(e.useColor, fmt.Sprintf("execution error: %v", err))
			return
		}
		printResult(os.Stdout, result, e.useColor)
	} else if req, uerr := sparql.ParseUpdate(stmt); uerr == nil {
		n, err := exec.ExecuteUpdate(ctx, req, e.stats)
		if err != nil {
			printErr(e.useColor, fmt.Sprintf("execution error: %v", err))
			return
		}
		fmt.Printf("%d triples affected\n", n)
		if n > 0 {
			if err := e.refreshStats(); err != nil {
				printErr(e.useColor, fmt.Sprintf("failed to refresh statistics: %v", err))
			}
		}
	} else {
		printErr(e.useColor, fmt.Sprintf("parse error (as query): %v", err))
		printErr(e.useColor, fmt.Sprintf("parse error (as update): %v", uerr))
		return
	}

	if e.verbose {
		fmt.Fprintf(os.Stderr, "\n-- trace (%s) --\n", time.Since(start))
		trace.NewFormatter(os.Stderr).Write(ctx.Trace.Events())
	}
}

func printErr(useColor bool, msg string) {
	if useColor {
		fmt.Fprintln(os.Stderr, color.RedString(msg))
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}
