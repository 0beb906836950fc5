package fat12

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// directoryEntryBytesCount is the on-disk size of one directory entry.
	directoryEntryBytesCount = 32

	// filenameBytesCount is the size of the fixed-width 8.3 name field.
	filenameBytesCount = 11

	// deletedEntryMarker is the first name byte of a deleted entry.
	deletedEntryMarker = 0xe5

	// kanjiLeadByteMarker is stored in place of a leading 0xE5 name byte so
	// the entry isn't mistaken for a deleted one.
	kanjiLeadByteMarker = 0x05
)

// DosTime is a packed time-of-day with a two-second granularity.
type DosTime uint16

// Second returns the seconds (always even).
func (dt DosTime) Second() int {
	return int(dt&0x1f) * 2
}

// Minute returns the minutes.
func (dt DosTime) Minute() int {
	return int(dt&0x7e0) >> 5
}

// Hour returns the hours.
func (dt DosTime) Hour() int {
	return int(dt&0xf800) >> 11
}

func (dt DosTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", dt.Hour(), dt.Minute(), dt.Second())
}

// DosDate is a packed date relative to 1980-01-01.
type DosDate uint16

// Day returns the day of the month (1-31).
func (dd DosDate) Day() int {
	return int(dd & 0x1f)
}

// Month returns the month (1-12).
func (dd DosDate) Month() int {
	return int(dd&0x1e0) >> 5
}

// Year returns the full year.
func (dd DosDate) Year() int {
	return 1980 + int(dd&0xfe00)>>9
}

// IsZero indicates that the date is unset (or invalid, since neither the day nor
// the month can be zero).
func (dd DosDate) IsZero() bool {
	return dd.Day() == 0 || dd.Month() == 0
}

func (dd DosDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", dd.Year(), dd.Month(), dd.Day())
}

// dosTimestamp combines a date and a time into a UTC time.Time. An unset date
// yields the zero time.
func dosTimestamp(dd DosDate, dt DosTime) time.Time {
	if dd.IsZero() == true {
		return time.Time{}
	}

	return time.Date(dd.Year(), time.Month(dd.Month()), dd.Day(), dt.Hour(), dt.Minute(), dt.Second(), 0, time.UTC)
}

// FileAttributes is the attribute bitmask of a directory entry.
type FileAttributes uint8

// IsReadOnly indicates a read-only file.
func (fa FileAttributes) IsReadOnly() bool {
	return fa&0x01 > 0
}

// IsHidden indicates a hidden file.
func (fa FileAttributes) IsHidden() bool {
	return fa&0x02 > 0
}

// IsSystem indicates a system file.
func (fa FileAttributes) IsSystem() bool {
	return fa&0x04 > 0
}

// IsVolumeLabel indicates that the entry carries the volume label rather than
// a file.
func (fa FileAttributes) IsVolumeLabel() bool {
	return fa&0x08 > 0
}

// IsDirectory indicates a subdirectory.
func (fa FileAttributes) IsDirectory() bool {
	return fa&0x10 > 0
}

// IsArchive indicates the archive flag.
func (fa FileAttributes) IsArchive() bool {
	return fa&0x20 > 0
}

// IsLongFilename indicates a VFAT long-filename fragment (all of the low four
// bits set).
func (fa FileAttributes) IsLongFilename() bool {
	return fa&0x0f == 0x0f
}

func (fa FileAttributes) String() string {
	return fmt.Sprintf("FileAttributes<IS-READONLY=[%v] IS-HIDDEN=[%v] IS-SYSTEM=[%v] IS-VOLUME-LABEL=[%v] IS-DIRECTORY=[%v] IS-ARCHIVE=[%v]>",
		fa.IsReadOnly(), fa.IsHidden(), fa.IsSystem(), fa.IsVolumeLabel(), fa.IsDirectory(), fa.IsArchive())
}

// DumpBareIndented prints the attributes with arbitrary indentation.
func (fa FileAttributes) DumpBareIndented(indent string) {
	fa.DumpBareIndentedTo(os.Stdout, indent)
}

// DumpBareIndentedTo prints the attributes to the given writer.
func (fa FileAttributes) DumpBareIndentedTo(w io.Writer, indent string) {
	fmt.Fprintf(w, "%sRaw Value: (%08b)\n", indent, fa)
	fmt.Fprintf(w, "%sIsReadOnly: [%v]\n", indent, fa.IsReadOnly())
	fmt.Fprintf(w, "%sIsHidden: [%v]\n", indent, fa.IsHidden())
	fmt.Fprintf(w, "%sIsSystem: [%v]\n", indent, fa.IsSystem())
	fmt.Fprintf(w, "%sIsVolumeLabel: [%v]\n", indent, fa.IsVolumeLabel())
	fmt.Fprintf(w, "%sIsDirectory: [%v]\n", indent, fa.IsDirectory())
	fmt.Fprintf(w, "%sIsArchive: [%v]\n", indent, fa.IsArchive())
}

// DirectoryEntry is one 32-byte slot of a directory. The field order and sizes
// match the on-disk layout exactly.
type DirectoryEntry struct {
	// Name is the fixed-width 8.3 name: eight bytes of base name and three of
	// extension, both space-padded, with no dot.
	Name [filenameBytesCount]byte

	Attributes FileAttributes

	Reserved uint8

	// CreatedTimeTenths carries the sub-two-second part of the creation time,
	// in 10ms units.
	CreatedTimeTenths uint8

	CreatedTime  DosTime
	CreatedDate  DosDate
	AccessedDate DosDate

	// FirstClusterHigh is always zero on FAT12.
	FirstClusterHigh uint16

	ModifiedTime DosTime
	ModifiedDate DosDate

	FirstClusterLow uint16

	// Size is the file size in bytes.
	Size uint32
}

// IsFree indicates that this slot and every slot after it are unused.
func (de DirectoryEntry) IsFree() bool {
	return de.Name[0] == 0
}

// IsDeleted indicates that the slot belonged to a file that was deleted.
func (de DirectoryEntry) IsDeleted() bool {
	return de.Name[0] == deletedEntryMarker
}

// IsFile indicates an in-use entry that describes a regular file.
func (de DirectoryEntry) IsFile() bool {
	if de.IsFree() == true || de.IsDeleted() == true {
		return false
	}

	return de.Attributes.IsLongFilename() == false && de.Attributes.IsVolumeLabel() == false && de.Attributes.IsDirectory() == false
}

// FirstCluster returns the first cluster of the entry's data. Only the low
// sixteen bits mean anything on FAT12.
func (de DirectoryEntry) FirstCluster() uint32 {
	return uint32(de.FirstClusterLow)
}

// Filename returns the human form of the 8.3 name ("README.TXT").
func (de DirectoryEntry) Filename() string {
	return FilenameFromShortName(de.Name)
}

// CreatedTimestamp returns the creation time, including the tenths field.
func (de DirectoryEntry) CreatedTimestamp() time.Time {
	t := dosTimestamp(de.CreatedDate, de.CreatedTime)
	if t.IsZero() == true {
		return t
	}

	return t.Add(time.Duration(de.CreatedTimeTenths) * 10 * time.Millisecond)
}

// ModifiedTimestamp returns the last-modified time.
func (de DirectoryEntry) ModifiedTimestamp() time.Time {
	return dosTimestamp(de.ModifiedDate, de.ModifiedTime)
}

// AccessedTimestamp returns the last-accessed date. FAT12 does not record the
// time of day for it.
func (de DirectoryEntry) AccessedTimestamp() time.Time {
	return dosTimestamp(de.AccessedDate, 0)
}

func (de DirectoryEntry) String() string {
	return fmt.Sprintf("DirectoryEntry<NAME=[%s] ATTRIBUTES=(0x%02x) FIRST-CLUSTER=(%d) SIZE=(%d)>", string(de.Name[:]), uint8(de.Attributes), de.FirstCluster(), de.Size)
}

// Dump prints all fields of the entry.
func (de DirectoryEntry) Dump() {
	de.DumpTo(os.Stdout)
}

// DumpTo prints all fields of the entry to the given writer.
func (de DirectoryEntry) DumpTo(w io.Writer) {
	fmt.Fprintf(w, "Directory Entry\n")
	fmt.Fprintf(w, "===============\n")
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Name: [%s]\n", string(de.Name[:]))
	fmt.Fprintf(w, "-> Filename: [%s]\n", de.Filename())
	fmt.Fprintf(w, "Attributes: (0x%02x)\n", uint8(de.Attributes))
	de.Attributes.DumpBareIndentedTo(w, "  ")
	fmt.Fprintf(w, "Created: [%s %s] (+%d0ms)\n", de.CreatedDate, de.CreatedTime, de.CreatedTimeTenths)
	fmt.Fprintf(w, "Accessed: [%s]\n", de.AccessedDate)
	fmt.Fprintf(w, "Modified: [%s %s]\n", de.ModifiedDate, de.ModifiedTime)
	fmt.Fprintf(w, "FirstClusterHigh: (%d)\n", de.FirstClusterHigh)
	fmt.Fprintf(w, "FirstClusterLow: (%d)\n", de.FirstClusterLow)
	fmt.Fprintf(w, "Size: (%d)\n", de.Size)

	fmt.Fprintf(w, "\n")
}
