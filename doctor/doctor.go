package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"rekam/hotkey"
	"rekam/recorder"
	"rekam/shutdown"
)

type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
	BaseURL() string
}

type Options struct {
	Store    Pinger
	Recorder recorder.Recorder
	// FFmpegCommand is checked on PATH when the ffmpeg recorder is in use.
	FFmpegCommand string
	RecordFor     time.Duration
	In            io.Reader
	Out           io.Writer
	// Interactive resets the terminal and exits on Ctrl+C.
	Interactive bool
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.RecordFor <= 0 {
		opts.RecordFor = 3 * time.Second
	}
	if opts.Interactive {
		resetTerminal()
		setupInterruptHandler()
	}
	out := opts.Out

	fmt.Fprintln(out, "rekam doctor - system diagnostics")
	fmt.Fprintln(out, "=================================")

	allPass := true
	if !checkStore(opts) {
		allPass = false
	}
	if !checkMicrophone(opts) {
		allPass = false
	}
	checkClipboard(out)
	checkHotkey(out)

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkStore(opts Options) bool {
	out := opts.Out
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[1/4] Remote store")
	fmt.Fprintf(out, "  %s\n", opts.Store.BaseURL())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	took, err := opts.Store.Ping(ctx)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "  PASS: entry list answered in %dms\n", took.Milliseconds())
	return true
}

func checkMicrophone(opts Options) bool {
	out := opts.Out
	fmt.Fprintln(out)
	fmt.Fprintf(out, "[2/4] Microphone (%s recorder)\n", opts.Recorder.Name())

	if opts.Recorder.Name() == "ffmpeg" {
		path, err := exec.LookPath(opts.FFmpegCommand)
		if err != nil {
			fmt.Fprintf(out, "  FAIL: %s not found: %v\n", opts.FFmpegCommand, err)
			return false
		}
		fmt.Fprintf(out, "  using %s\n", path)
	}

	fmt.Fprintf(out, "Press Enter and speak for %.0f seconds...", opts.RecordFor.Seconds())
	bufio.NewReader(opts.In).ReadString('\n')

	stream, err := opts.Recorder.Open(context.Background())
	if err != nil {
		fmt.Fprintf(out, "\n  FAIL: %v\n", err)
		return false
	}
	defer stream.Close()

	size, err := drain(out, stream, opts.RecordFor)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: capture error: %v\n", err)
		return false
	}
	if size == 0 {
		fmt.Fprintln(out, "  FAIL: no audio captured")
		return false
	}
	fmt.Fprintf(out, "  PASS: captured %.1f KB of %s from %s\n", float64(size)/1024, stream.MediaType(), stream.Device())
	return true
}

// drain records for d, then stops the stream and waits for its final event.
func drain(out io.Writer, stream recorder.Stream, d time.Duration) (int, error) {
	fmt.Fprint(out, "\n  Recording")
	stop := time.After(d)
	dots := time.NewTicker(500 * time.Millisecond)
	defer dots.Stop()
	timeout := time.After(d + 10*time.Second)

	size := 0
	for {
		select {
		case <-stop:
			stop = nil
			stream.Stop()
		case <-dots.C:
			fmt.Fprint(out, ".")
		case ev, ok := <-stream.Events():
			if !ok {
				fmt.Fprintln(out, " done")
				return size, nil
			}
			if ev.Kind == recorder.EventFinal {
				fmt.Fprintln(out, " done")
				return size, ev.Err
			}
			size += len(ev.Data)
		case <-timeout:
			fmt.Fprintln(out)
			return size, fmt.Errorf("recorder did not finish")
		}
	}
}

// checkClipboard is informational: the TUI only uses the clipboard to copy
// audio links.
func checkClipboard(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[3/4] Clipboard")

	if clipboard.Unsupported {
		fmt.Fprintln(out, "  SKIP: no clipboard utility available (install xclip, xsel or wl-clipboard)")
		return
	}
	prev, _ := clipboard.ReadAll()
	sentinel := fmt.Sprintf("rekam-doctor-%d", time.Now().UnixNano())
	if err := clipboard.WriteAll(sentinel); err != nil {
		fmt.Fprintf(out, "  WARN: copy failed: %v\n", err)
		return
	}
	got, err := clipboard.ReadAll()
	clipboard.WriteAll(prev)
	if err != nil || strings.TrimSpace(got) != sentinel {
		fmt.Fprintf(out, "  WARN: clipboard did not round-trip (got %q)\n", got)
		return
	}
	fmt.Fprintln(out, "  PASS: copy to clipboard works")
}

// checkHotkey is informational: the global hotkey is opt-in (-hotkey).
func checkHotkey(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[4/4] Global hotkey")
	info, err := hotkey.Diagnose()
	if err != nil {
		fmt.Fprintf(out, "  WARN: %v\n", err)
		return
	}
	fmt.Fprintf(out, "  PASS: %s\n", info)
}
