package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"osuroundtrip/internal/config"
	"osuroundtrip/internal/results"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"--log-level", "error"}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestVerifyFixtures(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	out, err := runCLI(t, "verify", "--results", db, "dotosu/testdata")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "4 passed, 0 failed") {
		t.Errorf("report:\n%s", out)
	}

	// a second run with --skip-seen skips everything that passed
	out, err = runCLI(t, "verify", "--results", db, "--skip-seen", "dotosu/testdata")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0 passed, 0 failed, 4 skipped") {
		t.Errorf("report:\n%s", out)
	}
}

func TestVerifySkipsRulesets(t *testing.T) {
	out, err := runCLI(t, "verify", "--results", "", "--skip-ruleset", "mania,taiko", "dotosu/testdata")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 passed, 0 failed, 2 skipped") {
		t.Errorf("report:\n%s", out)
	}
}

func TestVerifyReportsFailures(t *testing.T) {
	dir := t.TempDir()
	bad := "osu file format v14\n\n[HitObjects]\n0,0,0,2,0,X|1:1,1,100\n"
	if err := os.WriteFile(filepath.Join(dir, "bad.osu"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	failures := filepath.Join(t.TempDir(), "failures")

	out, err := runCLI(t, "verify", "--results", "", "--failures", failures, dir)
	if err == nil || !strings.Contains(err.Error(), "first failure bad.osu") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "0 passed, 1 failed") {
		t.Errorf("report:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(failures, "bad.osu.err")); err != nil {
		t.Error(err)
	}
}

func TestVerifySingleFile(t *testing.T) {
	out, err := runCLI(t, "verify", "--results", "", "dotosu/testdata/sample_osu.osu")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 passed") {
		t.Errorf("report:\n%s", out)
	}
}

func TestDecodeSummary(t *testing.T) {
	out, err := runCLI(t, "decode", "dotosu/testdata/storyboard_only_video.osu")
	if err != nil {
		t.Fatal(err)
	}
	var sum summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("%v\n%s", err, out)
	}
	if sum.FormatVersion != 14 || sum.Ruleset != "osu" {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Storyboard != 1 {
		t.Errorf("storyboard elements = %d, want the video", sum.Storyboard)
	}
	if len(sum.Digest) != 64 {
		t.Errorf("digest = %q", sum.Digest)
	}
}

func TestEncodeConverts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taiko.osu")
	if _, err := runCLI(t, "encode", "--ruleset", "taiko", "-o", path, "dotosu/testdata/sample_osu.osu"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Mode: 1") {
		t.Error("converted output is not a taiko beatmap")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCLI(t, "frobnicate"); err == nil {
		t.Error("unknown command accepted")
	}
}

func TestGuardRecoversPanics(t *testing.T) {
	err := guard(func() error { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "panic: boom") {
		t.Errorf("err = %v", err)
	}
}

func TestForEachVisitsEveryIndex(t *testing.T) {
	seen := make([]bool, 50)
	forEach(len(seen), 3, func(i int) { seen[i] = true })
	for i, ok := range seen {
		if !ok {
			t.Errorf("index %d not visited", i)
		}
	}
}

func TestSummarizeCountsOnlyChecked(t *testing.T) {
	outcomes := []outcome{
		{Name: "a.osu", Status: results.StatusPass},
		{Name: "b.osu", Status: statusSkip, Err: context.Canceled},
		{Name: "c.osu", Status: results.StatusFail, Err: os.ErrInvalid},
	}
	err := summarize(outcomes)
	if err == nil || !strings.Contains(err.Error(), "verified 1/2 .osu files; first failure c.osu") {
		t.Errorf("err = %v", err)
	}
}
