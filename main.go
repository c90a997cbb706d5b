package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"improve/beep"
	"improve/clipboard"
	"improve/config"
	"improve/doctor"
	"improve/hotkey"
	"improve/llm"
	"improve/log"
	"improve/notify"
	"improve/shutdown"
)

var version = "dev"

type options struct {
	configPath string
	logPath    string
	profile    string
	verbose    bool
	doctor     bool
	version    bool
	noBeep     bool
	noNotify   bool
}

// parseFlags registers the command line over cfg. Only flags the user set
// override the config file, so cfg is filled after the file is loaded.
func parseFlags(fs *flag.FlagSet, args []string) (options, func(*config.Config), error) {
	var o options
	var (
		key             = fs.String("key", "", "improve chord, e.g. Shift+F10 or Ctrl+Alt+F1")
		showOriginalKey = fs.String("show-original-key", "", "chord that types \"original | improved\"")
		commandKey      = fs.String("command-key", "", "chord that turns the selection into a shell command")
		showOriginal    = fs.Bool("show-original", false, "always include the original text in the output")
		backend         = fs.String("backend", "", "LLM backend: ollama, openai or anthropic")
		ollamaHost      = fs.String("ollama-host", "", "Ollama host (default http://localhost)")
		ollamaPort      = fs.Int("ollama-port", 0, "Ollama port (default 11434)")
		ollamaModel     = fs.String("ollama-model", "", "Ollama model (default qwen3:1.7b)")
		model           = fs.String("model", "", "model for the openai or anthropic backend")
		typer           = fs.String("typer", "", "keystroke output: auto, uinput, wtype or paste")
		backup          = fs.Bool("backup-clipboard", false, "copy the selection to the clipboard before replacing it")
	)
	fs.StringVar(&o.configPath, "config", "", "config file (default: IMPROVE_CONFIG or the user config dir)")
	fs.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&o.profile, "profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	fs.BoolVar(&o.verbose, "verbose", false, "log debug detail to the console")
	fs.BoolVar(&o.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	fs.BoolVar(&o.noBeep, "no-beep", false, "disable audio cues")
	fs.BoolVar(&o.noNotify, "no-notify", false, "disable desktop notifications")

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}

	apply := func(cfg *config.Config) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "key":
				cfg.Keys.Improve = *key
			case "show-original-key":
				cfg.Keys.ShowOriginal = *showOriginalKey
			case "command-key":
				cfg.Keys.Command = *commandKey
			case "show-original":
				cfg.ShowOriginal = *showOriginal
			case "backend":
				cfg.Backend = *backend
			case "ollama-host":
				cfg.Ollama.Host = *ollamaHost
			case "ollama-port":
				cfg.Ollama.Port = *ollamaPort
			case "ollama-model":
				cfg.Ollama.Model = *ollamaModel
			case "model":
				cfg.OpenAI.Model = *model
				cfg.Anthropic.Model = *model
			case "typer":
				cfg.Typer = *typer
			case "backup-clipboard":
				cfg.BackupClipboard = *backup
			case "no-beep":
				cfg.Beep = false
			case "no-notify":
				cfg.Notify = false
			}
		})
	}
	return o, apply, nil
}

func loadConfig(o options, apply func(*config.Config)) (config.Config, error) {
	path, explicit, err := config.ResolvePath(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return cfg, err
	}
	apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildBindings parses the configured chords in table order. Validate has
// already rejected bad and duplicate chords.
func buildBindings(keys config.Keys) ([]Binding, error) {
	var bindings []Binding
	for _, k := range []struct {
		chord  string
		action Action
	}{
		{keys.Improve, ActionImprove},
		{keys.ShowOriginal, ActionImproveShowOriginal},
		{keys.Command, ActionCommand},
	} {
		if k.chord == "" {
			continue
		}
		c, err := hotkey.ParseChord(k.chord)
		if err != nil {
			return nil, fmt.Errorf("%s chord: %w", k.action, err)
		}
		bindings = append(bindings, Binding{Chord: c, Action: k.action})
	}
	return bindings, nil
}

func backendConfig(cfg config.Config, secrets config.Secrets) (llm.Config, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		// Local OpenAI-compatible servers need no key, so a missing key or
		// an unusable keyring is left for llm.New to judge.
		key, err := secrets.Get("OPENAI_API_KEY")
		if err != nil && !errors.Is(err, config.ErrNoSecret) {
			log.Warnf("OPENAI_API_KEY lookup: %v", err)
		}
		return llm.Config{Backend: cfg.Backend, Model: cfg.OpenAI.Model, URL: cfg.OpenAI.BaseURL, APIKey: key}, nil
	case config.BackendAnthropic:
		key, err := secrets.Get("ANTHROPIC_API_KEY")
		if err != nil {
			return llm.Config{}, err
		}
		return llm.Config{Backend: cfg.Backend, Model: cfg.Anthropic.Model, APIKey: key}, nil
	default:
		return llm.Config{Backend: cfg.Backend, Model: cfg.Ollama.Model, URL: cfg.Ollama.URL()}, nil
	}
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func run() int {
	o, apply, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		return 2
	}
	if o.version {
		fmt.Printf("improve %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(o.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if o.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", o.profile)
			if err := http.ListenAndServe(o.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	cfg, err := loadConfig(o, apply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	bindings, err := buildBindings(cfg.Keys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	bcfg, err := backendConfig(cfg, config.DefaultSecrets())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	backend, err := llm.New(bcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if o.doctor {
		return doctor.Run(doctor.Options{Chord: bindings[0].Chord, Backend: backend, Typer: cfg.Typer})
	}

	if err := log.Init(log.Options{Verbose: o.verbose, Console: true}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if !cfg.Beep {
		beep.Disable()
	}
	if !cfg.Notify {
		notify.Disable()
	}
	beep.Init()

	typer, err := clipboard.NewTyper(cfg.Typer)
	if err != nil {
		log.Errorf("keystroke output: %v", err)
		return 1
	}
	defer typer.Close()

	table := hotkey.NewTable()
	chordNames := make([]string, 0, len(bindings))
	for _, b := range bindings {
		table.Register(b.Chord)
		chordNames = append(chordNames, fmt.Sprintf("%s=%s", b.Chord, b.Action))
	}
	queue := hotkey.NewQueue()
	listener, err := hotkey.Start(table, queue, hotkey.ListenConfig{
		Interval: cfg.Poll.Interval,
		Cooldown: cfg.Poll.Cooldown,
		Hotplug:  true,
	})
	if err != nil {
		log.Errorf("hotkey listener: %v", err)
		return 1
	}

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	improver := llm.NewImprover(backend)
	if w, ok := backend.(llm.Warmer); ok {
		go func() {
			if err := w.Warm(ctx); err != nil {
				log.Warnf("warming %s: %v", backend.Model(), err)
			}
		}()
	}

	d := NewDispatcher(bindings, improver, typer, backend.Name())
	d.ShowOriginal = cfg.ShowOriginal
	d.BackupClipboard = cfg.BackupClipboard

	log.SessionStart(backend.Name(), backend.Model(), chordNames)
	for _, b := range bindings {
		log.Infof("%s: %s", b.Chord, b.Action)
	}
	log.Infof("using %s (%s); press Ctrl+C to quit", backend.Name(), backend.Model())

	listenErr := make(chan error, 1)
	go func() { listenErr <- listener.Run(ctx) }()

	code := 0
	if err := runLoop(ctx, queue, d); err != nil {
		log.Errorf("%v", err)
		code = 1
	}
	cancel()
	<-listenErr

	log.SessionEnd(d.Handled())
	return code
}
