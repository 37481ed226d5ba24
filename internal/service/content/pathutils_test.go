package content

import (
	"testing"
	"time"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Intro", "Intro"},
		{"A/B", "A⁄B"},
		{`C:\x`, "C:⁄x"},
		{"a/b\\c", "a⁄b⁄c"},
	}
	for _, tt := range tests {
		if got := SanitizeSegment(tt.in); got != tt.want {
			t.Errorf("SanitizeSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinKey(t *testing.T) {
	got := JoinKey("Ch", "Q&A/FAQ", "001_Intro.png")
	if want := "Ch/Q&A⁄FAQ/001_Intro.png"; got != want {
		t.Errorf("JoinKey() = %q, want %q", got, want)
	}
}

func TestSiblingKeys(t *testing.T) {
	stamp := time.Date(2025, 1, 15, 12, 34, 56, 0, time.UTC)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pending", PendingKey("Ch/Cat/001_Intro/001_01.mp4"), "Ch/Cat/001_Intro/pending/001_01.mp4"},
		{"pending at root", PendingKey("file.png"), "pending/file.png"},
		{"archived", ArchivedKey("Ch/Cat/001_Intro.png", stamp, time.UTC), "Ch/Cat/archived/001_Intro_202501151234.png"},
		{"archived without extension", ArchivedKey("Ch/readme", stamp, time.UTC), "Ch/archived/readme_202501151234"},
		{"archived in zone", ArchivedKey("a/b.pdf", stamp, time.FixedZone("KST", 9*3600)), "a/archived/b_202501152134.pdf"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestPageNaming(t *testing.T) {
	if got := Basename("001_Intro.png"); got != "001_Intro" {
		t.Errorf("Basename() = %q", got)
	}
	if got := Extension("Clip.MP4"); got != ".mp4" {
		t.Errorf("Extension() = %q", got)
	}

	prefixTests := []struct {
		name   string
		prefix string
		ok     bool
	}{
		{"001_Intro.png", "001", true},
		{"123_", "123", true},
		{"01_Intro.png", "", false},
		{"Intro.png", "", false},
		{"0012_x", "", false},
	}
	for _, tt := range prefixTests {
		prefix, ok := PagePrefix(tt.name)
		if prefix != tt.prefix || ok != tt.ok {
			t.Errorf("PagePrefix(%q) = %q, %v; want %q, %v", tt.name, prefix, ok, tt.prefix, tt.ok)
		}
	}

	if got := AdditionalFilename("001", 1, ".mp4"); got != "001_01.mp4" {
		t.Errorf("AdditionalFilename() = %q", got)
	}
	if got := AdditionalFilename("002", 12, ".pdf"); got != "002_12.pdf" {
		t.Errorf("AdditionalFilename() = %q", got)
	}
	if got := ReprefixAdditional("001_02.pdf", "002"); got != "002_02.pdf" {
		t.Errorf("ReprefixAdditional() = %q", got)
	}
	if got := ReprefixAdditional("notes.pdf", "002"); got != "notes.pdf" {
		t.Errorf("ReprefixAdditional() without prefix = %q", got)
	}
}
