package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/townscope/townscope/pkg/config"
	"github.com/townscope/townscope/pkg/surface"
	"github.com/townscope/townscope/pkg/town"
)

func TestRankCmdFlags(t *testing.T) {
	cmd := newRankCmd()
	f := cmd.Flags()

	outputFmt, _ := f.GetString("output")
	if outputFmt != "text" {
		t.Errorf("default output = %q, want text", outputFmt)
	}
	limit, _ := f.GetInt("limit")
	if limit != 10 {
		t.Errorf("default limit = %d, want 10", limit)
	}

	for _, flag := range []string{"project", "towns", "profile", "scoring-config", "output", "limit", "offset", "country", "workers", "save"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestScoreCmdFlags(t *testing.T) {
	cmd := newScoreCmd()
	f := cmd.Flags()

	factors, _ := f.GetInt("factors")
	if factors != 5 {
		t.Errorf("default factors = %d, want 5", factors)
	}
	for _, flag := range []string{"project", "towns", "profile", "output", "factors"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("score should require a town id")
	}
}

func TestServeCmdFlags(t *testing.T) {
	f := newServeCmd().Flags()
	port, _ := f.GetString("port")
	if port != "7700" {
		t.Errorf("default port = %q, want 7700", port)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"a", "b", "c"}, "a"},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"", "", "c"}, "c"},
		{[]string{"", "", ""}, ""},
	}

	for _, tt := range tests {
		got := firstNonEmpty(tt.args...)
		if got != tt.want {
			t.Errorf("firstNonEmpty(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newFixture lays out a project with two town files and a profile, and
// runs the test from inside it with an isolated HOME.
func newFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	t.Chdir(root)

	writeFile(t, filepath.Join(root, "data", "europe", "spain.json"), `{"towns":[
		{"id":"valencia","name":"Valencia","country":"Spain"},
		{"id":"malaga","name":"Malaga","country":"Spain"}
	]}`)
	writeFile(t, filepath.Join(root, "data", "europe", "france", "lyon.json"),
		`[{"id":"lyon","name":"Lyon","country":"France"},{"id":"malaga","name":"Málaga","country":"Spain"}]`)
	writeFile(t, filepath.Join(root, "profile.json"), `{"region_preferences":{"countries":["Spain"]}}`)
	return root
}

func TestExpandTownPatterns(t *testing.T) {
	root := newFixture(t)
	writeFile(t, filepath.Join(root, "data", "notes.txt"), "ignored")

	files, err := expandTownPatterns([]string{"data/**/*.json", "data/europe/spain.json"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join("data", "europe", "france", "lyon.json"),
		filepath.Join("data", "europe", "spain.json"),
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", files, want)
	}

	if _, err := expandTownPatterns([]string{"data/[.json"}); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestLoadTownsLaterFileWins(t *testing.T) {
	newFixture(t)

	towns, err := loadTowns([]string{"data/**/*.json"})
	if err != nil {
		t.Fatal(err)
	}
	if len(towns) != 3 {
		t.Fatalf("got %d towns, want 3", len(towns))
	}
	// france/lyon.json sorts before spain.json, so spain.json's Malaga wins.
	for _, tw := range towns {
		if tw.ID == "malaga" && tw.Name != "Malaga" {
			t.Errorf("malaga name = %q, want the later record", tw.Name)
		}
	}

	if _, err := loadTowns([]string{"nothing/*.json"}); err == nil {
		t.Error("expected error when no files match")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRankCommand(t *testing.T) {
	root := newFixture(t)

	out, err := execute(t, "rank", "--towns", "data/**/*.json", "--profile", "profile.json", "--output", "json", "--save")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	var report surface.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Total != 3 || len(report.Results) != 3 {
		t.Fatalf("total = %d, results = %d, want 3/3", report.Total, len(report.Results))
	}
	if c := report.Results[2].Country; c != "France" {
		t.Errorf("last result country = %q, want France", c)
	}
	if report.ID == "" {
		t.Error("saved report should carry an id")
	}

	saved, _ := filepath.Glob(filepath.Join(config.ResultDir(root), "*.json"))
	if len(saved) != 1 {
		t.Errorf("expected one saved ranking, got %v", saved)
	}
}

func TestRankCommandCountryAndLimit(t *testing.T) {
	newFixture(t)

	out, err := execute(t, "rank", "--towns", "data/**/*.json", "--country", "spain", "--limit", "1", "--output", "json")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	var report surface.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if report.Total != 2 || len(report.Results) != 1 {
		t.Errorf("total = %d, results = %d, want 2/1", report.Total, len(report.Results))
	}
}

func TestRankUsesProjectConfig(t *testing.T) {
	root := newFixture(t)
	writeFile(t, filepath.Join(root, ".townscope", "config.yaml"), `
data:
  towns: ["data/**/*.json"]
  profile: profile.json
output:
  limit: 2
  format: json
`)
	// Run from a subdirectory so the config is found by walking up.
	sub := filepath.Join(root, "data", "europe")
	t.Chdir(sub)

	out, err := execute(t, "rank")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	var report surface.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("expected JSON from config output.format: %v", err)
	}
	if len(report.Results) != 2 {
		t.Errorf("results = %d, want config limit 2", len(report.Results))
	}
}

func TestScoreCommand(t *testing.T) {
	newFixture(t)

	out, err := execute(t, "score", "Valencia", "--towns", "data/**/*.json", "--profile", "profile.json", "--output", "markdown")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "Valencia") {
		t.Errorf("expected town in output:\n%s", out)
	}

	if _, err := execute(t, "score", "atlantis", "--towns", "data/**/*.json"); err == nil {
		t.Error("expected error for unknown town")
	}
	if _, err := execute(t, "score", "lyon", "--towns", "data/**/*.json", "--output", "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWeightsCommand(t *testing.T) {
	root := newFixture(t)
	writeFile(t, filepath.Join(root, "empty.json"), `{}`)

	out, err := execute(t, "weights", "--profile", "empty.json", "--output", "json")
	if err != nil {
		t.Fatalf("weights: %v", err)
	}
	var resp struct {
		Weights      map[string]float64 `json:"weights"`
		AppliedRules []string           `json:"applied_rules"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	for _, w := range resp.Weights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("weights sum = %f, want 1", sum)
	}
	if len(resp.AppliedRules) != 0 {
		t.Errorf("empty profile fired rules: %v", resp.AppliedRules)
	}

	out, err = execute(t, "weights", "--profile", "empty.json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No adaptive rules fired") {
		t.Errorf("unexpected text output:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	root := newFixture(t)

	out, err := execute(t, "validate", "--towns", "data/**/*.json", "--profile", "profile.json")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "4 records in 2 files, 3 unique") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, `town "malaga" also defined`) {
		t.Errorf("expected duplicate warning:\n%s", out)
	}

	writeFile(t, filepath.Join(root, "data", "broken.json"), `[{"name":"Nowhere"}]`)
	out, err = execute(t, "validate", "--towns", "data/**/*.json")
	if err == nil {
		t.Fatalf("expected validation failure:\n%s", out)
	}
	if !strings.Contains(out, "has no id") {
		t.Errorf("expected missing id error:\n%s", out)
	}
}

func TestValidateWritesMergedDataset(t *testing.T) {
	root := newFixture(t)
	dest := filepath.Join(root, "build", "towns.json")

	out, err := execute(t, "validate", "--towns", "data/**/*.json", "--write-merged", dest)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Wrote 3 towns to "+dest) {
		t.Errorf("unexpected output:\n%s", out)
	}

	towns, err := town.Load(dest)
	if err != nil {
		t.Fatalf("load merged: %v", err)
	}
	ids := make([]string, 0, len(towns))
	for _, tw := range towns {
		ids = append(ids, tw.ID)
	}
	if len(ids) != 3 {
		t.Errorf("merged ids = %v, want 3 unique towns", ids)
	}
}

func TestValidateSkipsMergeOnFailure(t *testing.T) {
	root := newFixture(t)
	dest := filepath.Join(root, "build", "towns.json")
	writeFile(t, filepath.Join(root, "data", "broken.json"), `[{"name":"Nowhere"}]`)

	if _, err := execute(t, "validate", "--towns", "data/**/*.json", "--write-merged", dest); err == nil {
		t.Fatal("expected validation failure")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("merged dataset written despite errors: %v", err)
	}
}
