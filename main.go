package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"rekam/app"
	"rekam/audio"
	"rekam/beep"
	"rekam/config"
	"rekam/doctor"
	"rekam/entries"
	"rekam/hotkey"
	"rekam/log"
	"rekam/recorder"
	"rekam/server"
	"rekam/shutdown"
)

var version = "dev"

var (
	shutdownOnce sync.Once
	osExit       = os.Exit
	exit         = osExit
)

// gracefulShutdown detaches the capture and runs release (audio context,
// hotkey) before exiting.
func gracefulShutdown(a *app.App, release func(), code int) {
	shutdownOnce.Do(func() {
		if a != nil {
			a.Close()
		}
		if release != nil {
			release()
		}
		log.Close()
		tuiMu.Lock()
		if tuiProgram != nil {
			tuiProgram.Quit()
		}
		tuiMu.Unlock()
		exit(code)
	})
}

// initCrashLog sends runtime crash output to crash_log.txt in the log dir.
func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func setupLogDir(flagPath, configPath string) {
	if flagPath == "" {
		flagPath = configPath
	}
	logPath, err := log.ResolveDir(flagPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()
}

func run() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		os.Exit(runServe(os.Args[2:]))
	}

	envFlag := flag.String("env", "", "Path to .env file (default: $REKAM_ENV_FILE or ./.env)")
	apiFlag := flag.String("api", "", "Remote store base URL (overrides REKAM_API_BASE)")
	recorderFlag := flag.String("recorder", "", "Recorder: ffmpeg (webm, default) or device (flac) (overrides REKAM_RECORDER)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	timeoutFlag := flag.Duration("timeout", 0, "Per-request timeout for the remote store (e.g., 30s)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, scripted recorder)")
	beepFlag := flag.Bool("beep", true, "Play a cue when recording starts and stops")
	hotkeyFlag := flag.Bool("hotkey", false, "Toggle recording with "+hotkey.Combo+" from any window")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI (false: stdin-driven with the real recorder)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("rekam %s\n", version)
		os.Exit(0)
	}
	if !*beepFlag {
		beep.Disable()
	}

	cfg, err := config.Load(*envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.APIBase = *apiFlag
	}
	if *recorderFlag != "" {
		cfg.Recorder = *recorderFlag
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *timeoutFlag > 0 {
		cfg.RequestTimeout = *timeoutFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	setupLogDir(*logPathFlag, cfg.LogPath)

	client, err := entries.NewClient(cfg.APIBase, cfg.RequestTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *testFlag {
		os.Exit(runTestMode(client, cfg, recorder.NewFake(), os.Stdin, os.Stdout))
	}

	// Resolve -setup into a device name before anything opens the mic
	if *setupFlag && cfg.Recorder == config.RecorderDevice && cfg.Device == "" {
		actx, err := audio.NewContext()
		if err != nil {
			fmt.Printf("Error initializing audio: %v\n", err)
			os.Exit(1)
		}
		if dev, err := audio.SelectDevice(actx); err != nil {
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		} else if dev != nil {
			cfg.Device = dev.Name
		}
		actx.Close()
	}

	rec, closeRec, err := newRecorder(cfg)
	if err != nil {
		log.Errorf("recorder init error: %v", err)
		fmt.Printf("Error initializing recorder: %v\n", err)
		os.Exit(1)
	}

	if *doctorFlag {
		code := doctor.Run(doctor.Options{
			Store:         client,
			Recorder:      rec,
			FFmpegCommand: cfg.FFmpegCommand,
			Interactive:   true,
		})
		closeRec()
		os.Exit(code)
	}

	if !*tuiFlag {
		code := runTestMode(client, cfg, rec, os.Stdin, os.Stdout)
		closeRec()
		os.Exit(code)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(rec.Name(), cfg.APIBase)
	}

	a := app.New(app.Deps{
		Recorder: rec,
		Store:    client,
		Timeout:  cfg.RequestTimeout,
	})

	hkCtx, stopHotkey := context.WithCancel(context.Background())
	release := func() {
		stopHotkey()
		closeRec()
	}
	if *hotkeyFlag {
		err := hotkey.Watch(hkCtx, hotkey.New(), func() {
			a.ToggleRecording(context.Background())
		})
		if err != nil {
			log.Warnf("global hotkey unavailable: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: global hotkey unavailable: %v\n", err)
		} else {
			log.Info("hotkey registered: " + hotkey.Combo)
		}
	}

	sigCh := make(chan os.Signal, 1)
	shutdown.Notify(sigCh)
	go func() {
		<-sigCh
		gracefulShutdown(a, release, 0)
	}()

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(a, cfg.APIBase)
	tuiMu.Unlock()
	a.SetSink(newTUISink(tuiProgram))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		a.Load(ctx)
	}()

	if _, err := tuiProgram.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		gracefulShutdown(a, release, 1)
	}
	gracefulShutdown(a, release, 0)
}

func newRecorder(cfg *config.Config) (recorder.Recorder, func(), error) {
	switch cfg.Recorder {
	case config.RecorderFFmpeg:
		return recorder.NewFFmpeg(recorder.FFmpegConfig{
			Command:     cfg.FFmpegCommand,
			InputFormat: cfg.InputFormat,
			InputDevice: cfg.InputDevice,
		}), func() {}, nil
	case config.RecorderDevice:
		actx, err := audio.NewContext()
		if err != nil {
			return nil, nil, fmt.Errorf("audio context: %w", err)
		}
		return recorder.NewDevice(actx, cfg.Device), actx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown recorder %q", cfg.Recorder)
	}
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	envFlag := fs.String("env", "", "Path to .env file")
	addrFlag := fs.String("addr", "", "Listen address (overrides REKAM_LISTEN_ADDR)")
	dataFlag := fs.String("data", "", "Data directory (overrides REKAM_DATA_DIR)")
	publicFlag := fs.String("public", "", "Public base URL for audio links (overrides REKAM_PUBLIC_URL)")
	logPathFlag := fs.String("logpath", "", "log directory path")
	fs.Parse(args)

	cfg, err := config.Load(*envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *addrFlag != "" {
		cfg.ListenAddr = *addrFlag
	}
	if *dataFlag != "" {
		cfg.DataDir = *dataFlag
	}
	if *publicFlag != "" {
		cfg.PublicURL = *publicFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	setupLogDir(*logPathFlag, cfg.LogPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	store, err := server.OpenStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	fmt.Printf("rekam store listening on %s (data: %s)\n", cfg.ListenAddr, cfg.DataDir)
	log.Infof("serve: addr=%s data=%s", cfg.ListenAddr, cfg.DataDir)
	if err := server.New(store, server.Options{PublicURL: cfg.PublicURL}).Run(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
