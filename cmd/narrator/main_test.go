package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s should not exist", path)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}

func TestGenerate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")
	code, _, stderr := runCLI(t, "generate", "--text", "hello", "--output", out)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stderr, out) {
		t.Errorf("expected a log line naming %s, got %q", out, stderr)
	}

	clip, err := audio.ReadWAV(out)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if clip.Duration() != time.Second {
		t.Errorf("expected 1000ms, got %v", clip.Duration())
	}
}

func TestGenerate_MissingFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cases := [][]string{
		{"generate"},
		{"generate", "--text", "hello"},
		{"generate", "--output", "out.wav"},
	}
	for _, args := range cases {
		code, _, stderr := runCLI(t, args...)
		if code != exitError {
			t.Errorf("%v: expected exit 1, got %d", args, code)
		}
		if !strings.Contains(stderr, "required") {
			t.Errorf("%v: expected usage error, got %q", args, stderr)
		}
	}
	assertEmptyDir(t, dir)
}

func TestGenerate_MissingDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "out.wav")
	code, _, _ := runCLI(t, "generate", "--text", "hello", "--output", out)
	if code != exitError {
		t.Fatalf("expected exit 1, got %d", code)
	}
	assertNoFile(t, out)
}

func writeTone(t *testing.T, path string, d time.Duration, amplitude float64) *audio.Clip {
	t.Helper()
	c := audio.Silent(d, 8000, 1, 16)
	for i := range c.Samples {
		c.Samples[i] = int(amplitude * math.Sin(2*math.Pi*330*float64(i)/8000))
	}
	if err := audio.WriteWAV(path, c); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	return c
}

func TestMix(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	m := filepath.Join(dir, "m.wav")
	in := writeTone(t, a, 2*time.Second, 5000)
	bg := writeTone(t, b, 5*time.Second, 5000)

	code, _, stderr := runCLI(t, "mix", "--input", a, "--background", b, "--output", m, "--volume", "-6.0")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}

	got, err := audio.ReadWAV(m)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if got.Duration() != 2*time.Second {
		t.Errorf("expected input duration 2s, got %v", got.Duration())
	}

	want, err := audio.Overlay(in, audio.ApplyGain(bg, -6.0))
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	for i := range want.Samples {
		if got.Samples[i] != want.Samples[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, want.Samples[i], got.Samples[i])
		}
	}
}

func TestMix_DefaultVolume(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	m := filepath.Join(dir, "m.wav")
	in := writeTone(t, a, time.Second, 1000)

	code, _, stderr := runCLI(t, "mix", "--input", a, "--background", a, "--output", m)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	got, err := audio.ReadWAV(m)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	for i, s := range in.Samples {
		if got.Samples[i] != 2*s {
			t.Fatalf("sample %d: expected %d, got %d", i, 2*s, got.Samples[i])
		}
	}
}

func TestMix_MissingFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cases := [][]string{
		{"mix"},
		{"mix", "--input", "a.wav", "--background", "b.wav"},
		{"mix", "--input", "a.wav", "--output", "m.wav"},
		{"mix", "--background", "b.wav", "--output", "m.wav", "--volume", "-3"},
	}
	for _, args := range cases {
		if code, _, _ := runCLI(t, args...); code != exitError {
			t.Errorf("%v: expected exit 1, got %d", args, code)
		}
	}
	assertEmptyDir(t, dir)
}

func TestMix_MissingInputFile(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b.wav")
	m := filepath.Join(dir, "m.wav")
	writeTone(t, b, time.Second, 1000)

	code, _, stderr := runCLI(t, "mix", "--input", filepath.Join(dir, "nope.wav"), "--background", b, "--output", m)
	if code != exitError {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "nope.wav") {
		t.Errorf("expected error naming the input, got %q", stderr)
	}
	assertNoFile(t, m)
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"narrate"},
		{"generate", "--bogus"},
		{"mix", "--volume", "loud"},
		{"-nope", "demo"},
		{"demo", "extra"},
		{"jobs", "--status", "sleeping"},
	}
	for _, args := range cases {
		code, _, stderr := runCLI(t, args...)
		if code != exitUsage {
			t.Errorf("%v: expected exit 2, got %d", args, code)
		}
		if stderr == "" {
			t.Errorf("%v: expected usage on stderr", args)
		}
	}
}

func TestHelp(t *testing.T) {
	if code, _, _ := runCLI(t, "-h"); code != exitOK {
		t.Errorf("expected exit 0 for -h, got %d", code)
	}
}

func TestNoDemoSideEffects(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if code, _, stderr := runCLI(t, "generate", "--text", "hello", "--output", "out.wav"); code != exitOK {
		t.Fatalf("generate failed: %d %s", code, stderr)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.wav" {
		t.Errorf("expected only out.wav, got %v", entries)
	}
	assertNoFile(t, filepath.Join(dir, "assets"))
	assertNoFile(t, filepath.Join(dir, "mixed.wav"))
}

func TestDemo(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	code, stdout, stderr := runCLI(t, "demo")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "mixed.wav") {
		t.Errorf("expected stdout to name the output, got %q", stdout)
	}

	for _, p := range []string{
		filepath.Join(dir, "assets", "demo", "short.wav"),
		filepath.Join(dir, "assets", "demo", "loop.wav"),
		filepath.Join(dir, "mixed.wav"),
	} {
		clip, err := audio.ReadWAV(p)
		if err != nil {
			t.Fatalf("ReadWAV %s: %v", p, err)
		}
		if clip.Duration() != time.Second {
			t.Errorf("%s: expected 1s, got %v", p, clip.Duration())
		}
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "narrator.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestJobs(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "storage:\n  db_path: "+filepath.Join(dir, "data", "jobs.db")+"\n")

	out := filepath.Join(dir, "out.wav")
	if code, _, stderr := runCLI(t, "-config", cfgPath, "generate", "--text", "hello", "--output", out); code != exitOK {
		t.Fatalf("generate failed: %d %s", code, stderr)
	}
	missing := filepath.Join(dir, "missing", "m.wav")
	if code, _, _ := runCLI(t, "-config", cfgPath, "mix", "--input", out, "--background", out, "--output", missing); code != exitError {
		t.Fatalf("expected mix into missing directory to fail, got %d", code)
	}

	code, stdout, stderr := runCLI(t, "-config", cfgPath, "jobs")
	if code != exitOK {
		t.Fatalf("jobs failed: %d %s", code, stderr)
	}
	for _, want := range []string{"narration", "completed", "mixing", "failed", out} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in jobs output:\n%s", want, stdout)
		}
	}

	code, stdout, _ = runCLI(t, "-config", cfgPath, "jobs", "--status", "failed")
	if code != exitOK {
		t.Fatalf("jobs --status failed: %d", code)
	}
	if strings.Contains(stdout, "narration") || !strings.Contains(stdout, "mixing") {
		t.Errorf("expected only the failed mixing job:\n%s", stdout)
	}
}

func TestJobs_HistoryDisabled(t *testing.T) {
	code, _, stderr := runCLI(t, "jobs")
	if code != exitError {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "storage.db_path") {
		t.Errorf("expected hint about storage.db_path, got %q", stderr)
	}
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	if code, _, _ := runCLI(t, "-config", filepath.Join(dir, "nope.yaml"), "generate", "--text", "x", "--output", out); code != exitError {
		t.Errorf("missing config: expected exit 1, got %d", code)
	}
	if code, _, _ := runCLI(t, "-log-level", "loud", "generate", "--text", "x", "--output", out); code != exitError {
		t.Errorf("bad log level: expected exit 1, got %d", code)
	}

	cfgPath := writeConfig(t, dir, "tts:\n  engine: nonexistent\n")
	if code, _, _ := runCLI(t, "-config", cfgPath, "generate", "--text", "x", "--output", out); code != exitError {
		t.Errorf("unknown engine: expected exit 1, got %d", code)
	}
	assertNoFile(t, out)
}
