package fat12

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func TestShortNameFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{filename: "README.TXT", expected: "README  TXT"},
		{filename: "readme.txt", expected: "README  TXT"},
		{filename: "A.B", expected: "A       B  "},
		{filename: "KERNEL", expected: "KERNEL     "},
		{filename: "AUTOEXEC.BAT", expected: "AUTOEXECBAT"},
		{filename: "X.", expected: "X          "},
		{filename: "MY FILE.TXT", expected: "MY FILE TXT"},
		{filename: "\xe5BC.TXT", expected: "\x05BC     TXT"},
	}

	for _, tt := range tests {
		if len(tt.expected) != filenameBytesCount {
			t.Fatalf("Expected short name for [%s] is not (%d) bytes: [%s]", tt.filename, filenameBytesCount, tt.expected)
		}

		shortName, err := ShortNameFromFilename(tt.filename)
		log.PanicIf(err)

		if string(shortName[:]) != tt.expected {
			t.Fatalf("Short name for [%s] not correct: [%s] != [%s]", tt.filename, string(shortName[:]), tt.expected)
		}
	}
}

func TestShortNameFromFilename__Invalid(t *testing.T) {
	invalid := []string{
		"",
		".TXT",
		"TOOLONGNAME.TXT",
		"README.TEXT",
		"A.B.C",
		"BAD*.TXT",
		"BAD?.TXT",
		"BAD/.TXT",
		"BAD\x01.TXT",
		"A+B.TXT",
	}

	for _, filename := range invalid {
		_, err := ShortNameFromFilename(filename)
		if err == nil {
			t.Fatalf("Expected error for [%s].", filename)
		}
	}
}

func TestFilenameFromShortName(t *testing.T) {
	tests := []struct {
		shortName string
		expected  string
	}{
		{shortName: "README  TXT", expected: "README.TXT"},
		{shortName: "KERNEL     ", expected: "KERNEL"},
		{shortName: "AUTOEXECBAT", expected: "AUTOEXEC.BAT"},
		{shortName: "A       B  ", expected: "A.B"},
		{shortName: "\x05BC     TXT", expected: "\xe5BC.TXT"},
	}

	for _, tt := range tests {
		if len(tt.shortName) != filenameBytesCount {
			t.Fatalf("Short name is not (%d) bytes: [%s]", filenameBytesCount, tt.shortName)
		}

		filename := FilenameFromShortName(getShortName(tt.shortName))
		if filename != tt.expected {
			t.Fatalf("Filename for [%s] not correct: [%s] != [%s]", tt.shortName, filename, tt.expected)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		// Exactly eleven bytes with no dot is taken as-is.
		{name: "README  TXT", expected: "README  TXT"},
		{name: "readme  txt", expected: "readme  txt"},

		{name: "README.TXT", expected: "README  TXT"},
		{name: "readme.txt", expected: "README  TXT"},
		{name: "SCATTER.BIN", expected: "SCATTER BIN"},
	}

	for _, tt := range tests {
		shortName, err := NormalizeName(tt.name)
		log.PanicIf(err)

		if string(shortName[:]) != tt.expected {
			t.Fatalf("Normalized name for [%s] not correct: [%s] != [%s]", tt.name, string(shortName[:]), tt.expected)
		}
	}
}

func TestTrimPadding(t *testing.T) {
	if s := trimPadding([]byte("NO NAME    ")); s != "NO NAME" {
		t.Fatalf("Spaces not trimmed: [%s]", s)
	} else if s := trimPadding([]byte{'A', 0, 0}); s != "A" {
		t.Fatalf("NULs not trimmed: [%s]", s)
	}
}
