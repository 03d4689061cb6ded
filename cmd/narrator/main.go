package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/config"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/database"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/jobs"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/narrator"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/tts"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("[main] received %v, shutting down", sig)
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// action is a parsed command ready to execute.
type action func(ctx context.Context, e *env) error

// env holds what commands share once flags are valid.
type env struct {
	cfg    *config.Config
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("narrator", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { printUsage(stderr) }
	configPath := global.String("config", "", "path to YAML config file (built-in defaults when empty)")
	logLevel := global.String("log-level", "", "override log.level (debug, info, warn, error)")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "missing command")
		printUsage(stderr)
		return exitUsage
	}

	var (
		act  action
		code int
	)
	name, cmdArgs := rest[0], rest[1:]
	switch name {
	case "generate":
		act, code = parseGenerate(cmdArgs, stderr)
	case "mix":
		act, code = parseMix(cmdArgs, stderr)
	case "demo":
		act, code = parseDemo(cmdArgs, stderr)
	case "play":
		act, code = parsePlay(cmdArgs, stderr)
	case "jobs":
		act, code = parseJobs(cmdArgs, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", name)
		printUsage(stderr)
		return exitUsage
	}
	if act == nil {
		return code
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "load config: %v\n", err)
			return exitError
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Output:     stderr,
	}); err != nil {
		fmt.Fprintf(stderr, "init logger: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	if err := act(ctx, &env{cfg: cfg, stdout: stdout}); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("[main] cancelled")
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "narrator: placeholder narration generator and background mixer")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "usage: narrator [-config <path>] [-log-level <level>] <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  generate --text <text> --output <file.wav>")
	fmt.Fprintln(w, "  mix      --input <file.wav> --background <file.wav> --output <file.wav> [--volume <dB>]")
	fmt.Fprintln(w, "  demo     generate two clips in the demo directory and mix them")
	fmt.Fprintln(w, "  play     --input <file.wav>")
	fmt.Fprintln(w, "  jobs     [--status <status>] [--limit <n>]")
}

// newFlagSet returns a subcommand flag set whose parse errors go to stderr.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("narrator "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags maps a flag parse failure to an exit code. -h exits cleanly.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return exitUsage, false
	}
	return 0, true
}

// requireFlags reports the first empty required flag.
func requireFlags(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if fs.Lookup(name).Value.String() == "" {
			fmt.Fprintf(fs.Output(), "the following argument is required: --%s\n", name)
			fs.Usage()
			return false
		}
	}
	return true
}

func parseGenerate(args []string, stderr io.Writer) (action, int) {
	fs := newFlagSet("generate", stderr)
	text := fs.String("text", "", "text to narrate (required)")
	output := fs.String("output", "", "output WAV path (required)")
	if code, ok := parseFlags(fs, args); !ok {
		return nil, code
	}
	if !requireFlags(fs, "text", "output") {
		return nil, exitError
	}

	return func(ctx context.Context, e *env) error {
		svc, closeFn, err := newService(e.cfg, true)
		if err != nil {
			return err
		}
		defer closeFn()
		return svc.Generate(ctx, narrator.GenerationRequest{Text: *text, OutputPath: *output})
	}, exitOK
}

func parseMix(args []string, stderr io.Writer) (action, int) {
	fs := newFlagSet("mix", stderr)
	input := fs.String("input", "", "input WAV path (required)")
	background := fs.String("background", "", "background WAV path (required)")
	output := fs.String("output", "", "output WAV path (required)")
	volume := fs.Float64("volume", 0.0, "background gain in dB")
	if code, ok := parseFlags(fs, args); !ok {
		return nil, code
	}
	if !requireFlags(fs, "input", "background", "output") {
		return nil, exitError
	}

	return func(ctx context.Context, e *env) error {
		svc, closeFn, err := newService(e.cfg, false)
		if err != nil {
			return err
		}
		defer closeFn()
		return svc.Mix(ctx, narrator.MixRequest{
			InputPath:      *input,
			BackgroundPath: *background,
			OutputPath:     *output,
			VolumeGainDB:   *volume,
		})
	}, exitOK
}

func parseDemo(args []string, stderr io.Writer) (action, int) {
	fs := newFlagSet("demo", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return nil, code
	}

	return func(ctx context.Context, e *env) error {
		svc, closeFn, err := newService(e.cfg, true)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := svc.Demo(ctx, narrator.DemoRequest{
			Dir:          e.cfg.Demo.Dir,
			OutputPath:   e.cfg.Demo.Output,
			VolumeGainDB: e.cfg.Demo.VolumeDB(),
		}); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "demo written to %s\n", e.cfg.Demo.Output)
		return nil
	}, exitOK
}

func parsePlay(args []string, stderr io.Writer) (action, int) {
	fs := newFlagSet("play", stderr)
	input := fs.String("input", "", "WAV file to play (required)")
	if code, ok := parseFlags(fs, args); !ok {
		return nil, code
	}
	if !requireFlags(fs, "input") {
		return nil, exitError
	}

	return func(ctx context.Context, e *env) error {
		clip, err := audio.ReadWAV(*input)
		if err != nil {
			return err
		}
		player, err := audio.NewPlayer()
		if err != nil {
			return err
		}
		defer player.Close()

		logger.Infof("[main] playing %s (%s)", *input, clip)
		return player.Play(ctx, clip)
	}, exitOK
}

func parseJobs(args []string, stderr io.Writer) (action, int) {
	fs := newFlagSet("jobs", stderr)
	status := fs.String("status", "", "only list jobs in this status (pending, running, completed, failed, canceled)")
	limit := fs.Int("limit", 20, "maximum number of jobs to list, 0 for all")
	if code, ok := parseFlags(fs, args); !ok {
		return nil, code
	}
	if *status != "" && !jobs.Status(*status).Valid() {
		fmt.Fprintf(stderr, "invalid --status %q\n", *status)
		fs.Usage()
		return nil, exitUsage
	}

	return func(ctx context.Context, e *env) error {
		store, closeFn, err := openStore(e.cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("job history is disabled, set storage.db_path in the config")
		}
		defer closeFn()

		list, err := store.List(jobs.Status(*status), *limit, 0)
		if err != nil {
			return err
		}
		printJobs(e.stdout, list)
		return nil
	}, exitOK
}

func printJobs(w io.Writer, list []*jobs.Job) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tUPDATED\tOUTPUT\tERROR")
	for _, j := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Type, j.Status, j.UpdatedAt.Local().Format(time.DateTime), j.OutputFilePath, j.Error)
	}
	tw.Flush()
}

// newService builds a narrator.Service with job history when configured.
// The synthesis engine is only constructed when withEngine is set.
func newService(cfg *config.Config, withEngine bool) (*narrator.Service, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var engine tts.TextToAudio
	if withEngine {
		var err error
		engine, err = tts.New(cfg.TTS, cfg.Audio)
		if err != nil {
			return nil, nil, err
		}
		if c, ok := engine.(io.Closer); ok {
			closers = append(closers, func() { _ = c.Close() })
		}
		logger.Debugf("[main] tts engine: %s", cfg.TTS.Engine)
	}

	var opts []narrator.Option
	if withEngine {
		opts = append(opts, narrator.WithVoiceID(tts.VoiceIdentity(cfg.TTS, cfg.Audio)))
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if store != nil {
		closers = append(closers, closeStore)
		opts = append(opts, narrator.WithJobRecorder(store))
	}

	return narrator.New(engine, opts...), closeAll, nil
}

// openStore opens the job database. It returns a nil store when history
// is disabled.
func openStore(cfg *config.Config) (*jobs.Store, func(), error) {
	if cfg.Storage.DBPath == "" {
		return nil, func() {}, nil
	}
	db, err := database.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return jobs.NewStore(db), func() { db.Close() }, nil
}
