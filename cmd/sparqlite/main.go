// Command sparqlite is the REPL/batch front end for the SPARQL engine:
// flag-based configuration, a dot-command interactive shell,
// single-query batch mode, N-Triples bulk load/export, and an -explain
// mode surfacing the optimizer's rewrite report.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/exec"
	"github.com/wbrown/sparqlite/internal/trace"
	"github.com/wbrown/sparqlite/plan"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/sparql"
	"github.com/wbrown/sparqlite/store"
)

// engine bundles everything a query/update needs to run: the backing
// store and dictionary, the planner's cache and cold-start statistics,
// the configured limits, and whether to colorize output.
type engine struct {
	store  store.Store
	dict   dict.Dictionary
	cache  *plan.Cache
	limits exec.Limits
	stats  *plan.Statistics

	verbose  bool
	useColor bool
}

func (e *engine) newContext(ctx context.Context) *exec.Context {
	c := exec.NewContext(ctx, e.store, e.dict)
	c.Limits = e.limits
	c.Cache = e.cache
	return c
}

// refreshStats recomputes e.stats from the live store, used after bulk
// loads so the planner isn't working from a stale (or empty) snapshot.
func (e *engine) refreshStats() error {
	stats, err := plan.CollectStatistics(e.store, e.dict)
	if err != nil {
		return err
	}
	e.stats = stats
	if e.cache != nil {
		e.cache.Invalidate(nil)
	}
	return nil
}

func main() {
	var dbPath, dictPath, configPath string
	var interactive, help, verbose, explain, noColor bool
	var queryStr, loadPath, exportPath string
	var cacheSize int

	flag.StringVar(&dbPath, "db", "", "BadgerDB store path (empty: in-memory)")
	flag.StringVar(&dictPath, "dictdb", "", "BadgerDB dictionary path (empty: derived from -db, or in-memory)")
	flag.StringVar(&configPath, "config", "", "TOML config file")
	flag.BoolVar(&interactive, "i", false, "interactive mode")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show execution trace)")
	flag.BoolVar(&explain, "explain", false, "explain the query instead of running it")
	flag.BoolVar(&noColor, "no-color", false, "disable colorized output")
	flag.StringVar(&queryStr, "query", "", "run a single query/update and exit")
	flag.StringVar(&loadPath, "load", "", "bulk-load an N-Triples file before running")
	flag.StringVar(&exportPath, "export", "", "dump the store as N-Triples and exit")
	flag.IntVar(&cacheSize, "cache-size", plan.DefaultMaxSize, "plan cache capacity (0 disables the cost-based planner)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A SPARQL 1.1 query/update engine with persistent storage.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i                              # interactive REPL, in-memory store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db ./data -i                   # interactive REPL, persistent store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -load data.nt -db ./data -i     # bulk-load then open a REPL\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query 'SELECT * WHERE { ?s ?p ?o }'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query '...' -explain           # show the optimizer's rewrite\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	cfg := &Config{}
	cfg.Limits.MaxTriplesPerUpdate = exec.DefaultLimits.MaxTriplesPerUpdate
	cfg.Limits.MaxMatchesPerPattern = exec.DefaultLimits.MaxMatchesPerPattern
	cfg.Limits.MaxTemplateSize = exec.DefaultLimits.MaxTemplateSize
	cfg.Planner.CacheSize = cacheSize
	cfg.Planner.Enabled = cacheSize > 0
	cfg.Color = !noColor
	if configPath != "" {
		loaded, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
		if dbPath == "" {
			dbPath = cfg.Store.Path
		}
	}

	e, err := buildEngine(cfg, dbPath, dictPath, verbose)
	if err != nil {
		log.Fatalf("failed to initialize engine: %v", err)
	}
	defer e.store.Close()
	if closer, ok := e.dict.(*dict.BadgerDictionary); ok {
		defer closer.Close()
	}

	if loadPath != "" {
		n, err := bulkLoad(e, loadPath)
		if err != nil {
			log.Fatalf("load failed: %v", err)
		}
		fmt.Printf("loaded %d triples from %s\n", n, loadPath)
		if err := e.refreshStats(); err != nil {
			log.Fatalf("failed to collect statistics: %v", err)
		}
	} else if err := e.refreshStats(); err != nil {
		log.Fatalf("failed to collect statistics: %v", err)
	}

	if exportPath != "" {
		n, err := bulkExport(e, exportPath)
		if err != nil {
			log.Fatalf("export failed: %v", err)
		}
		fmt.Printf("exported %d triples to %s\n", n, exportPath)
		return
	}

	switch {
	case queryStr != "":
		runSingleStatement(e, queryStr, explain)
	case interactive:
		runREPL(e)
	default:
		fmt.Println("sparqlite: no -query given and -i not set; use -h for usage.")
	}
}

func buildEngine(cfg *Config, dbPath, dictPath string, verbose bool) (*engine, error) {
	e := &engine{
		limits:   cfg.limits(),
		verbose:  verbose,
		useColor: cfg.Color,
	}

	if dbPath == "" {
		e.store = store.NewMemStore()
	} else {
		s, err := store.NewBadgerStore(dbPath)
		if err != nil {
			return nil, err
		}
		e.store = s
	}

	switch {
	case dictPath != "":
		d, err := dict.NewBadgerDictionary(dictPath)
		if err != nil {
			return nil, err
		}
		e.dict = d
	case dbPath != "":
		// A persistent store without an explicit dictionary path gets a
		// sibling BadgerDictionary, so triple ids written this session
		// still decode after a restart.
		d, err := dict.NewBadgerDictionary(dbPath + "-dict")
		if err != nil {
			return nil, err
		}
		e.dict = d
	default:
		e.dict = dict.NewMemDictionary()
	}

	if cfg.Planner.Enabled {
		e.cache = plan.NewCache(cfg.Planner.CacheSize)
	}
	return e, nil
}

func bulkLoad(e *engine, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	triples, err := rdf.ParseNTriples(f)
	if err != nil {
		return 0, err
	}
	out := make([]store.Triple, 0, len(triples))
	for _, t := range triples {
		s, err := e.dict.GetOrCreateID(t.Subject)
		if err != nil {
			return 0, err
		}
		p, err := e.dict.GetOrCreateID(t.Predicate)
		if err != nil {
			return 0, err
		}
		o, err := e.dict.GetOrCreateID(t.Object)
		if err != nil {
			return 0, err
		}
		out = append(out, store.Triple{S: s, P: p, O: o})
	}
	if err := e.store.InsertTriples(out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func bulkExport(e *engine, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	it, err := e.store.Lookup(store.Pattern{})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var triples []rdf.Triple
	for it.Next() {
		tr := it.Triple()
		s, ok1 := e.dict.LookupTerm(tr.S)
		p, ok2 := e.dict.LookupTerm(tr.P)
		o, ok3 := e.dict.LookupTerm(tr.O)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		triples = append(triples, rdf.Triple{Subject: s, Predicate: p, Object: o})
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	if err := rdf.WriteNTriples(f, triples); err != nil {
		return 0, err
	}
	return len(triples), nil
}

// runSingleStatement parses text as a query first (SELECT/ASK/CONSTRUCT/
// DESCRIBE), falling back to UPDATE syntax on a parse failure; the two
// grammars are disjoint on their leading keyword, so only one of the two
// parses ever succeeds.
func runSingleStatement(e *engine, text string, explain bool) {
	ctx := e.newContext(context.Background())
	if e.verbose {
		ctx.Trace = trace.NewCollector()
	}
	start := time.Now()

	if cq, err := sparql.ParseQuery(text); err == nil {
		result, err := exec.Execute(ctx, cq, exec.Options{Explain: explain, Stats: e.stats, Cache: e.cache})
		if err != nil {
			fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
			os.Exit(1)
		}
		printResult(os.Stdout, result, e.useColor)
	} else if req, uerr := sparql.ParseUpdate(text); uerr == nil {
		n, err := exec.ExecuteUpdate(ctx, req, e.stats)
		if err != nil {
			fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d triples affected\n", n)
	} else {
		fmt.Fprintf(os.Stderr, "parse error (as query): %v\nparse error (as update): %v\n", err, uerr)
		os.Exit(1)
	}

	if e.verbose {
		fmt.Fprintf(os.Stderr, "\n-- trace (%s) --\n", time.Since(start))
		trace.NewFormatter(os.Stderr).Write(ctx.Trace.Events())
	}
}

// drainLine reads continuation lines from scanner until first's brace
// count balances, so a multi-line query/update typed at the REPL prompt
// doesn't need an explicit terminator.
func drainLine(scanner *bufio.Scanner, first string) string {
	line := first
	depth := strings.Count(line, "{") - strings.Count(line, "}")
	var b strings.Builder
	b.WriteString(line)
	for depth > 0 {
		fmt.Print("  ")
		if !scanner.Scan() {
			break
		}
		next := scanner.Text()
		depth += strings.Count(next, "{") - strings.Count(next, "}")
		b.WriteByte('\n')
		b.WriteString(next)
	}
	return b.String()
}
