package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/starford/wikifeed/internal/models"
	"github.com/starford/wikifeed/internal/storage"
)

func testParser(t *testing.T, files map[string]string, opts ...Option) *Parser {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(store, opts...)
}

func parseString(content string) models.ParsedPage {
	return New(nil).ParseBytes("page.md", []byte(content), time.Unix(0, 0))
}

func TestParse_TitleRoundTrip(t *testing.T) {
	p := testParser(t, map[string]string{"t.md": "#   Title  \nbody\n"})
	page := p.Parse("t.md")
	if page.Status != models.StatusSuccess {
		t.Fatalf("status = %q (%s)", page.Status, page.Error)
	}
	if page.Title != "Title" {
		t.Errorf("title = %q, want %q", page.Title, "Title")
	}
	if page.LastModifiedTime.IsZero() {
		t.Error("expected modification time")
	}
}

func TestParse_TitleIgnoresDeepHeadings(t *testing.T) {
	page := parseString("#### Too deep\ntext\n## Second level\n")
	if page.Title != "Second level" {
		t.Errorf("title = %q, want %q", page.Title, "Second level")
	}
}

func TestParse_TitleFallbackFromFilename(t *testing.T) {
	p := testParser(t, map[string]string{"account-member_ROLES.md": "no headings here"})
	page := p.Parse("account-member_ROLES.md")
	if page.Title != "Account Member Roles" {
		t.Errorf("title = %q, want %q", page.Title, "Account Member Roles")
	}
	if page.ID != "account_member_roles" {
		t.Errorf("id = %q, want %q", page.ID, "account_member_roles")
	}
}

func TestParse_FileNotFound(t *testing.T) {
	p := testParser(t, nil)
	page := p.Parse("Missing-Page.md")
	if page.Status != models.StatusError {
		t.Fatalf("status = %q, want error", page.Status)
	}
	if page.Error != models.ErrCodeFileNotFound {
		t.Errorf("error = %q, want %q", page.Error, models.ErrCodeFileNotFound)
	}
	if page.ID != "missing_page" {
		t.Errorf("id = %q", page.ID)
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	p := testParser(t, map[string]string{"bad.md": "\xff\xfe# nope"})
	page := p.Parse("bad.md")
	if page.Status != models.StatusError {
		t.Fatalf("status = %q, want error", page.Status)
	}
	if page.Error == "" || page.Error == models.ErrCodeFileNotFound {
		t.Errorf("error = %q, want decode error", page.Error)
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"#",
		"# ",
		"```",
		"|||",
		"[[",
		"[]()",
		"---\n---",
		"- \n* \n+ \n1. ",
		strings.Repeat("word ", 5000),
		"\n\n\n",
	}
	for _, in := range inputs {
		page := parseString(in)
		if page.Status != models.StatusSuccess && page.Status != models.StatusError {
			t.Errorf("input %q: status = %q", in, page.Status)
		}
		if page.Metrics.EngagementScore < 0 || page.Metrics.EngagementScore > 100 {
			t.Errorf("input %q: engagement = %d", in, page.Metrics.EngagementScore)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	content := "# Account Management\n\nUsers can invite members to an account.\n\n- Invite users by email\n- Change roles\n"
	p := testParser(t, map[string]string{"a.md": content})
	first := p.Parse("a.md")
	second := p.Parse("a.md")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("parse not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	page := parseString("")
	if page.Status != models.StatusSuccess {
		t.Fatalf("status = %q", page.Status)
	}
	m := page.Metrics
	if m.WordCount != 0 || m.EngagementScore != 0 || m.ComplexityScore != 0 {
		t.Errorf("metrics = %+v, want zeroes", m)
	}
	if m.EstimatedReadTime != 1 {
		t.Errorf("read time = %d, want 1", m.EstimatedReadTime)
	}
	if m.MondayMadnessApproved {
		t.Error("empty page should not be approved")
	}
	if m.EngagementPotential != LabelBuilding {
		t.Errorf("label = %q", m.EngagementPotential)
	}
	if page.Summary != summaryPlaceholder {
		t.Errorf("summary = %q", page.Summary)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    models.ContentType
	}{
		{"permissions table", "# Permissions\n| A | B |\n|---|---|\n| x | y |\n\npermission", models.TypePermissionsMatrix},
		{"permission without table", "# Roles\nEvery permission is listed.", models.TypeGeneralDocumentation},
		{"account management any case", "# ACCOUNT management\nThe api endpoint list.", models.TypeAccountManagement},
		{"user", "# User Profiles\nText.", models.TypeUserSystem},
		{"home", "# Home\nWelcome.", models.TypeWelcome},
		{"api", "# Integrations\nCall the endpoint.", models.TypeAPIDocumentation},
		{"general", "# Notes\nNothing else.", models.TypeGeneralDocumentation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := parseString(tc.content)
			if page.ContentType != tc.want {
				t.Errorf("content type = %q, want %q", page.ContentType, tc.want)
			}
		})
	}
}

func TestExtractFeatures(t *testing.T) {
	content := "# Invite Members\n" +
		"- Invite users by email\n" +
		"- invite users by EMAIL\n" +
		"- tiny\n" +
		"1. Change roles quickly\n" +
		"## Remove access\n" +
		"## Overview\n"
	page := parseString(content)
	want := []string{"Invite users by email", "Change roles quickly", "Invite Members", "Remove access"}
	if !reflect.DeepEqual(page.Features, want) {
		t.Errorf("features = %q, want %q", page.Features, want)
	}
	if page.Metrics.FeatureCount != len(want) {
		t.Errorf("feature count = %d", page.Metrics.FeatureCount)
	}
}

func TestExtractFeatures_CappedAtTen(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		b.WriteString("- feature item number ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString("\n")
	}
	page := parseString(b.String())
	if len(page.Features) != 10 {
		t.Errorf("len(features) = %d, want 10", len(page.Features))
	}
}

func TestGenerateSummary_PicksKeywordSentence(t *testing.T) {
	content := "# Doc\nThis is a plain sentence without anything special here. " +
		"Users can create an account and invite other users to the system. Short one."
	page := parseString(content)
	want := "Users can create an account and invite other users to the system"
	if page.Summary != want {
		t.Errorf("summary = %q, want %q", page.Summary, want)
	}
}

func TestGenerateSummary_StripsMarkdown(t *testing.T) {
	content := "Read the **bold** guide at [the wiki](https://example.com) using `make docs` now."
	page := parseString(content)
	want := "Read the bold guide at the wiki using make docs now"
	if page.Summary != want {
		t.Errorf("summary = %q, want %q", page.Summary, want)
	}
}

func TestGenerateSummary_Truncates(t *testing.T) {
	content := "The account management system lets every user create invites for teammates quickly"
	page := New(nil, WithSummaryMaxLength(30)).ParseBytes("x.md", []byte(content), time.Time{})
	if utf8.RuneCountInString(page.Summary) != 30 {
		t.Errorf("summary length = %d, want 30 (%q)", utf8.RuneCountInString(page.Summary), page.Summary)
	}
	if !strings.HasSuffix(page.Summary, "...") {
		t.Errorf("summary %q should end with ellipsis", page.Summary)
	}
}

func TestGenerateSummary_Placeholder(t *testing.T) {
	page := parseString("# T\nshort.")
	if page.Summary != summaryPlaceholder {
		t.Errorf("summary = %q, want placeholder", page.Summary)
	}
}

func TestMetrics(t *testing.T) {
	content := "# API\n\n- validation rules apply\n```\ncode\n```\n| a |\n"
	m := parseString(content).Metrics
	if m.ComplexityScore != 30 {
		t.Errorf("complexity = %d, want 30", m.ComplexityScore)
	}
	if m.EngagementScore != 50 {
		t.Errorf("engagement = %d, want 50", m.EngagementScore)
	}
	if m.MondayMadnessApproved {
		t.Error("score of exactly 50 must not be approved")
	}
	if m.EngagementPotential != LabelHigh {
		t.Errorf("label = %q, want %q", m.EngagementPotential, LabelHigh)
	}
	if m.CodeBlockCount != 1 || m.TableCount != 1 || m.HeadingCount != 1 {
		t.Errorf("counts = %+v", m)
	}
}

func TestMetrics_GoodLengthAndApproval(t *testing.T) {
	content := "# Guide\n- create things here\n```\nx\n```\n" + strings.Repeat("word ", 150)
	m := parseString(content).Metrics
	if m.EngagementScore != 100 {
		t.Errorf("engagement = %d, want 100", m.EngagementScore)
	}
	if !m.MondayMadnessApproved {
		t.Error("expected approval")
	}
	if m.EngagementPotential != LabelTopTier {
		t.Errorf("label = %q", m.EngagementPotential)
	}
}

func TestExtractMetadata_Links(t *testing.T) {
	page := parseString("See [Docs](https://x.com) and [Home](Home) plus [[Roles|the roles]] and [[Roles]].")
	meta := page.Metadata
	if len(meta.ExternalLinks) != 1 || meta.ExternalLinks[0].URL != "https://x.com" {
		t.Errorf("external = %+v", meta.ExternalLinks)
	}
	if len(meta.InternalLinks) != 1 || meta.InternalLinks[0].Text != "Home" {
		t.Errorf("internal = %+v", meta.InternalLinks)
	}
	if !reflect.DeepEqual(meta.WikiLinks, []string{"Roles"}) {
		t.Errorf("wiki links = %v", meta.WikiLinks)
	}
}

func TestFrontmatter(t *testing.T) {
	page := parseString("---\nowner: platform\n---\n# Hello\nBody text.\n")
	if page.Metadata.Frontmatter["owner"] != "platform" {
		t.Errorf("frontmatter = %v", page.Metadata.Frontmatter)
	}
	if page.Title != "Hello" {
		t.Errorf("title = %q", page.Title)
	}
}

func TestFrontmatter_InvalidYAMLIgnored(t *testing.T) {
	if fm := frontmatter([]byte("---\n: invalid: yaml: {{{\n---\nBody\n")); fm != nil {
		t.Errorf("expected nil frontmatter on invalid YAML, got %v", fm)
	}
}

func TestFiles(t *testing.T) {
	p := testParser(t, map[string]string{"A.md": "a", "B.md": "b", "c.txt": "c"})
	files, err := p.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("len(files) = %d, want 2", len(files))
	}
}
