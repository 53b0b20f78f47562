// Command pdgcli is the CLI driver for data dependency graph analysis,
// grounded on AnalysisMain.java's -t/-f contract and a run() error /
// flag-parsing shape for its entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"pdgtool/internal/driver"
	"pdgtool/internal/gitmeta"
	"pdgtool/internal/lower"
	"pdgtool/internal/metrics"
	"pdgtool/internal/pdg"
	"pdgtool/internal/progress"
	"pdgtool/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var typeShort, typeLong, fileShort, fileLong string
	var dir, ext string
	var sqlitePath string
	var history, verbose bool

	flag.StringVar(&typeShort, "t", "", "The analysis type, currently only \"ddg\" is supported")
	flag.StringVar(&typeLong, "type", "", "The analysis type, currently only \"ddg\" is supported")
	flag.StringVar(&fileShort, "f", "", "The AST JSON file (compilation unit) to analyze")
	flag.StringVar(&fileLong, "filePath", "", "The AST JSON file (compilation unit) to analyze")
	flag.StringVar(&dir, "dir", "", "Analyze every matching AST JSON file under this directory, concurrently (mutually exclusive with -f)")
	flag.StringVar(&ext, "ext", ".json", "File extension filter used with -dir")
	flag.StringVar(&sqlitePath, "o", "", "Also persist the computed graphs to this SQLite database")
	flag.StringVar(&sqlitePath, "sqlite", "", "Also persist the computed graphs to this SQLite database")
	flag.BoolVar(&history, "history", false, "Annotate the persisted database with git file-churn metrics (requires -o)")
	flag.BoolVar(&verbose, "verbose", false, "Print detailed progress")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pdgcli -t ddg -f <astFile.json> [-o <output.db>] [-history] [-verbose]\n")
		fmt.Fprintf(os.Stderr, "       pdgcli -t ddg -dir <dir> [-ext .json] [-o <output.db>] [-history] [-verbose]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	analysisType := firstNonEmpty(typeLong, typeShort)
	filePath := firstNonEmpty(fileLong, fileShort)

	if analysisType != "ddg" {
		flag.Usage()
		return fmt.Errorf("unsupported analysis type %q: only \"ddg\" is supported", analysisType)
	}
	if filePath == "" && dir == "" {
		flag.Usage()
		return fmt.Errorf("missing required -f/--filePath or -dir")
	}
	if filePath != "" && dir != "" {
		flag.Usage()
		return fmt.Errorf("-f/--filePath and -dir are mutually exclusive")
	}

	prog := progress.New(verbose)

	if dir != "" {
		return runDir(dir, ext, sqlitePath, history, prog)
	}
	return runFile(filePath, sqlitePath, history, prog)
}

// runFile analyzes a single compilation unit, preserving
// AnalysisMain.java's -t/-f behavior exactly.
func runFile(filePath, sqlitePath string, history bool, prog *progress.Progress) error {
	text, err := driver.ReadSource(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	root, err := lower.ParseJSONAST([]byte(text))
	if err != nil {
		return fmt.Errorf("parse AST json %s: %w", filePath, err)
	}

	d := driver.New()
	source := driver.NewSource(filePath, text, root)
	results, err := d.GetDDG(source)
	if err != nil {
		return fmt.Errorf("build ddg for %s: %w", filePath, err)
	}
	prog.Verbose("Built DDGs for %d methods in %s", len(results), filePath)

	resultMap := make(map[string]defUseJSON, len(results))
	for _, mp := range results {
		resultMap[methodKey(mp.Method)] = buildDefUseJSON(mp)
	}

	if err := printJSON(resultMap); err != nil {
		return err
	}

	if sqlitePath != "" {
		var graphs []store.MethodGraph
		for _, mp := range results {
			graphs = append(graphs, store.MethodGraph{
				File:    filePath,
				Method:  mp.Method,
				PDG:     mp.PDG,
				Metrics: metrics.Compute(mp.Method),
			})
		}
		sources := []fileSource{{Path: filePath, Text: text}}
		if err := persist(sqlitePath, filepath.Dir(filePath), filepath.Ext(filePath), sources, graphs, history, prog); err != nil {
			return fmt.Errorf("persist to %s: %w", sqlitePath, err)
		}
	}

	return nil
}

// runDir discovers every file under dir matching ext and analyzes them
// concurrently via Driver.AnalyzeAll, the natural multi-file consumer of
// internal/driver's SourceSet discovery layer.
func runDir(dir, ext, sqlitePath string, history bool, prog *progress.Progress) error {
	ss := driver.NewSourceSet(ext, driver.SourceRoot{Dir: dir})
	paths, err := ss.Discover()
	if err != nil {
		return fmt.Errorf("discover sources under %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found under %s", ext, dir)
	}
	prog.Verbose("Discovered %d files under %s", len(paths), dir)

	sources := make([]driver.Source, 0, len(paths))
	texts := make(map[string]string, len(paths))
	for _, path := range paths {
		text, err := driver.ReadSource(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		root, err := lower.ParseJSONAST([]byte(text))
		if err != nil {
			prog.Verbose("skipping %s: parse AST json: %v", ss.RelFile(path), err)
			continue
		}
		sources = append(sources, driver.NewSource(path, text, root))
		texts[path] = text
	}

	d := driver.New()
	results, err := d.AnalyzeAll(context.Background(), sources, pdg.DataOnlyOptions())
	if err != nil {
		return fmt.Errorf("analyze %s: %w", dir, err)
	}

	out := make(map[string]map[string]defUseJSON, len(results))
	var graphs []store.MethodGraph
	var fileSources []fileSource
	for _, res := range results {
		rel := ss.RelFile(res.Source.Path)
		if res.Err != nil {
			prog.Verbose("skipping %s: %v", rel, res.Err)
			continue
		}
		fileResults := make(map[string]defUseJSON, len(res.Methods))
		for _, mp := range res.Methods {
			fileResults[methodKey(mp.Method)] = buildDefUseJSON(mp)
			graphs = append(graphs, store.MethodGraph{
				File:    res.Source.Path,
				Method:  mp.Method,
				PDG:     mp.PDG,
				Metrics: metrics.Compute(mp.Method),
			})
		}
		out[rel] = fileResults
		fileSources = append(fileSources, fileSource{Path: res.Source.Path, Text: texts[res.Source.Path]})
	}
	prog.Log("Analyzed %d of %d discovered files under %s", len(out), len(paths), dir)

	if err := printJSON(out); err != nil {
		return err
	}

	if sqlitePath != "" {
		if err := persist(sqlitePath, dir, ext, fileSources, graphs, history, prog); err != nil {
			return fmt.Errorf("persist to %s: %w", sqlitePath, err)
		}
	}

	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ddg json: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// fileSource is one analyzed file's path and raw text, persisted to the
// sources table regardless of how many methods it contributed.
type fileSource struct {
	Path string
	Text string
}

func persist(sqlitePath, churnDir, churnExt string, sources []fileSource, graphs []store.MethodGraph, withHistory bool, prog *progress.Progress) error {
	w, err := store.Open(sqlitePath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for _, s := range sources {
		if err := w.WriteSource(s.Path, s.Text); err != nil {
			return err
		}
	}

	var churn []gitmeta.FileHistory
	if withHistory {
		churn = gitmeta.RunHistory(churnDir, churnExt, prog)
	}

	runID, err := w.WriteRun(len(sources), graphs, churn, prog)
	if err != nil {
		return err
	}
	prog.Log("Wrote run %s to %s", runID, sqlitePath)
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
