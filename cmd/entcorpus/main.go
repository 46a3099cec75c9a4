package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/cheggaaa/pb"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/cognicore/entcorpus/internal/cirrus"
	"github.com/cognicore/entcorpus/pkg/entcorpus"
	"github.com/cognicore/entcorpus/pkg/entcorpus/config"
	"github.com/cognicore/entcorpus/pkg/entcorpus/corpus"
	"github.com/cognicore/entcorpus/pkg/entcorpus/ingest"
	"github.com/cognicore/entcorpus/pkg/entcorpus/redirect"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store"
	"github.com/cognicore/entcorpus/pkg/entcorpus/store/sqlite"
)

var setByUser = make(map[string]bool)

// track records that a flag was given on the command line, so that only
// explicit flags override the config file.
func track(name string) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		setByUser[name] = true
		return nil
	}
}

var (
	dumpPath = kingpin.Arg("dump", "CirrusSearch dump (.json, .json.gz, .json.bz2 or - for stdin)").String()
	outPath  = kingpin.Arg("output", "output corpus (.txt, .txt.gz, .txt.bz2 or - for stdout)").String()

	configPath = kingpin.Flag("config", "YAML configuration file").Default("").String()
	tokenizer  = kingpin.Flag("tokenizer",
		"tokenization strategy: simple, dictionary or mecab").Action(track("tokenizer")).String()
	tokOptions = kingpin.Flag("tokenizer-option",
		"strategy option as key=value (repeatable)").Short('o').StringMap()
	mecabDic  = kingpin.Flag("mecab-dic", "dictionary for the mecab strategy").String()
	mecabUdic = kingpin.Flag("mecab-udic", "user dictionary for the mecab strategy").String()
	lowercase = kingpin.Flag("lowercase",
		"lowercase words (entity identifiers are kept)").Action(track("lowercase")).Bool()
	language = kingpin.Flag("language",
		"BCP 47 language for lowercasing rules").Action(track("language")).String()
	resolveRedirects = kingpin.Flag("resolve-redirects",
		"resolve link targets through redirects").Action(track("resolve-redirects")).Bool()
	redirectDB = kingpin.Flag("redirect-db",
		"SQLite database for redirect snapshots and the run ledger").Default("").String()
	workers = kingpin.Flag("workers",
		"number of tokenization workers").Action(track("workers")).Int()
	markerOpen  = kingpin.Flag("marker-open", "entity opening delimiter").Action(track("marker-open")).String()
	markerClose = kingpin.Flag("marker-close", "entity closing delimiter").Action(track("marker-close")).String()
	markerJoin  = kingpin.Flag("marker-join",
		"replacement for spaces inside entity identifiers (must be _)").Action(track("marker-join")).String()
	exampleLines = kingpin.Flag("example-lines",
		"log the first N corpus lines").Action(track("example-lines")).Int()
	progressEvery = kingpin.Flag("progress-every",
		"log progress every N articles").Action(track("progress-every")).Int()
	progress = kingpin.Flag("progress", "show a progress bar on stderr").Default("true").Bool()
	listRuns = kingpin.Flag("list-runs",
		"print the last N runs recorded in --redirect-db and exit").Default("0").Int()
	showRun = kingpin.Flag("show-run", "print one run recorded in --redirect-db and exit").String()
)

func override(cfg *config.Config) {
	if setByUser["tokenizer"] {
		cfg.Tokenizer = *tokenizer
	}
	if setByUser["lowercase"] {
		cfg.Lowercase = *lowercase
	}
	if setByUser["language"] {
		cfg.Language = *language
	}
	if setByUser["resolve-redirects"] {
		cfg.ResolveRedirects = *resolveRedirects
	}
	if setByUser["workers"] {
		cfg.Workers = *workers
	}
	if setByUser["marker-open"] {
		cfg.Marker.Open = *markerOpen
	}
	if setByUser["marker-close"] {
		cfg.Marker.Close = *markerClose
	}
	if setByUser["marker-join"] {
		cfg.Marker.Join = *markerJoin
	}
	if setByUser["example-lines"] {
		cfg.ExampleLines = *exampleLines
	}
	if setByUser["progress-every"] {
		cfg.ProgressEvery = *progressEvery
	}
	if *redirectDB != "" {
		cfg.RedirectDB = *redirectDB
	}

	opts := make(map[string]string, len(cfg.TokenizerOptions)+len(*tokOptions)+2)
	for k, v := range cfg.TokenizerOptions {
		opts[k] = v
	}
	for k, v := range *tokOptions {
		opts[k] = v
	}
	if *mecabDic != "" {
		opts["dic"] = *mecabDic
	}
	if *mecabUdic != "" {
		opts["udic"] = *mecabUdic
	}
	cfg.TokenizerOptions = opts
}

func main() {
	kingpin.Parse()

	log.SetPrefix("entcorpus ")

	ledgerOnly := *listRuns > 0 || *showRun != ""
	if !ledgerOnly && (*dumpPath == "" || *outPath == "") {
		kingpin.Fatalf("required arguments 'dump' and 'output' not provided, try --help")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loader := config.Loader{ConfigPath: *configPath, Override: override}
	components, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	defer components.Close()

	cfg := components.Config
	log.Printf("tokenizer: %s", ingest.CanonicalStrategy(cfg.Tokenizer))
	for k, v := range cfg.TokenizerOptions {
		log.Printf("tokenizer option %s: %s", k, v)
	}

	var st store.Store
	if cfg.RedirectDB != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.RedirectDB)
		if err != nil {
			log.Fatal("Failed to open database: ", err)
		}
		defer st.Close()
	}

	if ledgerOnly {
		if st == nil {
			log.Fatal("--list-runs and --show-run need --redirect-db")
		}
		if err := printLedger(ctx, os.Stdout, st, *showRun, *listRuns); err != nil {
			log.Fatal("Failed to read run ledger: ", err)
		}
		return
	}

	var resolver redirect.Resolver
	if cfg.ResolveRedirects {
		table, err := entcorpus.LoadRedirects(ctx, st, snapshotKey(*dumpPath),
			func() (entcorpus.Source, io.Closer, error) {
				f, err := cirrus.Open(*dumpPath, nil)
				if err != nil {
					return nil, nil, err
				}
				return f, f, nil
			}, log.Printf)
		if err != nil {
			log.Fatal("Failed to load redirects: ", err)
		}
		resolver = table
	}

	out, err := corpus.Create(*outPath)
	if err != nil {
		log.Fatal("Failed to create corpus: ", err)
	}

	var bar *pb.ProgressBar
	dump, err := cirrus.Open(*dumpPath, func(r io.Reader) io.Reader {
		if !*progress || *dumpPath == "-" {
			return r
		}
		info, err := os.Stat(*dumpPath)
		if err != nil {
			return r
		}
		bar = pb.New64(info.Size()).SetUnits(pb.U_BYTES)
		bar.Output = os.Stderr
		bar.Start()
		return bar.NewProxyReader(r)
	})
	if err != nil {
		log.Fatal("Failed to open dump: ", err)
	}
	defer dump.Close()

	log.Printf("generating corpus for training")
	gen := entcorpus.New(entcorpus.Options{
		Pipeline:      ingest.NewPipeline(components.Tokenizer, resolver),
		Writer:        corpus.NewWriter(out, components.Framing),
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		ExampleLines:  cfg.ExampleLines,
	})

	var stats entcorpus.Stats
	if st != nil {
		stats, err = gen.RunRecorded(ctx, st, store.NewIDs(), store.Run{
			Input:     *dumpPath,
			Output:    *outPath,
			Tokenizer: ingest.CanonicalStrategy(cfg.Tokenizer),
		}, dump)
	} else {
		stats, err = gen.Run(ctx, dump)
	}
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		out.Close()
		log.Fatal("Corpus generation failed: ", err)
	}
	if err := out.Close(); err != nil {
		log.Fatal("Failed to close corpus: ", err)
	}

	log.Printf("articles: %d, skipped malformed: %d, skipped corrupted: %d",
		stats.Processed, stats.Malformed, stats.Corrupted)
	log.Printf("anchors: %d, mentions: %d, unresolved links: %d",
		stats.Anchors, stats.Mentions, stats.Unresolved)
}

// snapshotKey identifies a dump in the redirect snapshot table.
func snapshotKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if info, err := os.Stat(abs); err == nil {
		return abs + "@" + strconv.FormatInt(info.Size(), 10)
	}
	return abs
}
