package fat12

import (
	"encoding/binary"
	"strings"

	"github.com/dsoprea/go-logging"
)

var (
	defaultEncoding = binary.LittleEndian
)

const (
	shortNameBaseBytesCount      = 8
	shortNameExtensionBytesCount = 3

	// shortNameInvalidCharacters may not appear anywhere in an 8.3 name.
	shortNameInvalidCharacters = "\"*+,/:;<=>?[\\]|"
)

// trimPadding drops the trailing spaces (and NULs, which some formatters use)
// from a fixed-width field.
func trimPadding(raw []byte) string {
	return strings.TrimRight(string(raw), " \x00")
}

// upperAscii uppercases only a-z. Short names are byte strings in an OEM code
// page, so anything above 0x7f is left alone.
func upperAscii(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}

	return string(b)
}

// FilenameFromShortName converts a fixed-width 8.3 name to its human form:
// "README  TXT" becomes "README.TXT".
func FilenameFromShortName(shortName [filenameBytesCount]byte) string {
	base := []byte(trimPadding(shortName[:shortNameBaseBytesCount]))
	if len(base) > 0 && base[0] == kanjiLeadByteMarker {
		base[0] = deletedEntryMarker
	}

	extension := trimPadding(shortName[shortNameBaseBytesCount:])
	if extension == "" {
		return string(base)
	}

	return string(base) + "." + extension
}

// ShortNameFromFilename converts a human filename ("readme.txt") to the
// fixed-width, space-padded, uppercase 8.3 form stored in directory entries
// ("README  TXT").
func ShortNameFromFilename(filename string) (shortName [filenameBytesCount]byte, err error) {
	if filename == "" {
		return shortName, log.Errorf("filename is empty")
	}

	filename = upperAscii(filename)

	base := filename
	extension := ""

	if i := strings.LastIndex(filename, "."); i != -1 {
		base = filename[:i]
		extension = filename[i+1:]
	}

	if len(base) == 0 || len(base) > shortNameBaseBytesCount {
		return shortName, log.Errorf("base-name must be between one and eight characters: [%s]", filename)
	} else if len(extension) > shortNameExtensionBytesCount {
		return shortName, log.Errorf("extension must be at most three characters: [%s]", filename)
	}

	for _, part := range []string{base, extension} {
		for i := 0; i < len(part); i++ {
			c := part[i]

			if c < 0x20 || c == '.' || strings.IndexByte(shortNameInvalidCharacters, c) != -1 {
				return shortName, log.Errorf("character not valid in a short filename: [%s] (0x%02x)", filename, c)
			}
		}
	}

	for i := range shortName {
		shortName[i] = ' '
	}

	copy(shortName[:shortNameBaseBytesCount], base)
	copy(shortName[shortNameBaseBytesCount:], extension)

	if shortName[0] == deletedEntryMarker {
		shortName[0] = kanjiLeadByteMarker
	}

	return shortName, nil
}

// NormalizeName returns the fixed-width name to search for. A value that is
// already exactly eleven bytes with no dot is taken verbatim; anything else is
// converted with ShortNameFromFilename.
func NormalizeName(name string) (shortName [filenameBytesCount]byte, err error) {
	if len(name) == filenameBytesCount && strings.Contains(name, ".") == false {
		copy(shortName[:], name)
		return shortName, nil
	}

	return ShortNameFromFilename(name)
}
