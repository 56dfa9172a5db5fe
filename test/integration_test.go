//go:build integration

package test_test

import (
	"fmt"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"rekam/server"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("REKAM_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "REKAM_TEST_BIN not set; build rekam and point REKAM_TEST_BIN at it")
		os.Exit(1)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func startStore(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := server.OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(server.New(store, server.Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func runRekam(t *testing.T, stdin string, args ...string) (logDir, stdout string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-env", filepath.Join(logDir, "none.env")}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("rekam exited with error: %v\noutput: %s", err, out)
	}
	return logDir, string(out)
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestSubmitAndList(t *testing.T) {
	srv := startStore(t)
	logDir, out := runRekam(t, cmds(
		"NAME Ann", "ADDRESS Elm 1",
		"START", "CHUNK hello", "STOP", "WAIT",
		"SUBMIT", "LIST", "QUIT",
	), "-test", "-api", srv.URL)

	if !strings.Contains(out, "ENTRY\t") {
		t.Errorf("expected an entry in output:\n%s", out)
	}
	subs := readLog(t, logDir, "submissions_log.txt")
	if !strings.Contains(subs, "Ann\tElm 1\tblob:rekam/") {
		t.Errorf("submissions_log.txt = %q", subs)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "capture_finalized", "submit", "op=submit"} {
		if !strings.Contains(diag, want) {
			t.Errorf("expected %q in diagnostics", want)
		}
	}
}

func TestStoreDownIsSilentOnLoad(t *testing.T) {
	srv := startStore(t)
	url := srv.URL
	srv.Close()

	logDir, out := runRekam(t, cmds("LIST", "QUIT"), "-test", "-api", url)
	if strings.Contains(out, "ALERT") {
		t.Errorf("initial load failure should not alert:\n%s", out)
	}
	if !strings.Contains(readLog(t, logDir, "diagnostics_log.txt"), "fetch_failed") {
		t.Error("expected fetch_failed in diagnostics")
	}
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	srv := startStore(t)
	url := srv.URL
	srv.Close()

	_, out := runRekam(t, cmds(
		"NAME Ann", "ADDRESS Elm 1",
		"START", "CHUNK hello", "STOP", "WAIT",
		"SUBMIT", "STATE", "QUIT",
	), "-test", "-api", url, "-timeout", "2s")

	if !strings.Contains(out, "ALERT\tsubmission failed") {
		t.Errorf("expected failure alert:\n%s", out)
	}
	if !strings.Contains(out, "\tAnn\tElm 1\taudio/webm:5") {
		t.Errorf("state not preserved:\n%s", out)
	}
}
