// This file loads and searches the root directory.

package fat12

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// RootDirectory is every slot of the root directory, in on-disk order. This
// includes free and deleted slots.
type RootDirectory []DirectoryEntry

// FindFile returns the first entry whose raw 11-byte name equals the given one.
// The name must already be in the fixed-width 8.3 form (see
// ShortNameFromFilename). Free and deleted slots are compared like any other.
func (rd RootDirectory) FindFile(name [filenameBytesCount]byte) (de DirectoryEntry, found bool) {
	for _, de := range rd {
		if bytes.Equal(de.Name[:], name[:]) == true {
			return de, true
		}
	}

	return de, false
}

// Files returns the in-use entries that describe regular files. Enumeration
// stops at the first free slot.
func (rd RootDirectory) Files() (files []DirectoryEntry) {
	files = make([]DirectoryEntry, 0)

	for _, de := range rd {
		if de.IsFree() == true {
			break
		}

		if de.IsFile() == false {
			continue
		}

		files = append(files, de)
	}

	return files
}

// VolumeLabel returns the label recorded in the root directory, if there is
// one.
func (rd RootDirectory) VolumeLabel() (label string, found bool) {
	for _, de := range rd {
		if de.IsFree() == true {
			break
		}

		if de.IsDeleted() == true || de.Attributes.IsLongFilename() == true {
			continue
		}

		if de.Attributes.IsVolumeLabel() == true {
			return trimPadding(de.Name[:]), true
		}
	}

	return "", false
}

// Dump prints every in-use entry.
func (rd RootDirectory) Dump() {
	fmt.Printf("Root Directory\n")
	fmt.Printf("==============\n")
	fmt.Printf("\n")

	for i, de := range rd {
		if de.IsFree() == true {
			break
		}

		fmt.Printf("# %d: %s\n", i, de)
	}

	fmt.Printf("\n")
}

func parseDirectoryEntry(directoryEntryData []byte) (de DirectoryEntry, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	err = restruct.Unpack(directoryEntryData, defaultEncoding, &de)
	log.PanicIf(err)

	return de, nil
}

// loadRootDirectory reads the whole root directory and returns its entries
// along with the LBA at which the data region (cluster 2) begins.
func (fr *Fat12Reader) loadRootDirectory() (rootDirectory RootDirectory, dataRegionOffset uint32, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	lba := fr.bsh.RootDirectoryOffset()
	sectorCount := fr.bsh.RootDirectorySectorCount()

	data, err := fr.ReadSectors(lba, sectorCount)
	log.PanicIf(err)

	entryCount := int(fr.bsh.DirEntryCount)
	rootDirectory = make(RootDirectory, entryCount)

	for i := 0; i < entryCount; i++ {
		directoryEntryData := data[i*directoryEntryBytesCount : (i+1)*directoryEntryBytesCount]

		de, err := parseDirectoryEntry(directoryEntryData)
		log.PanicIf(err)

		rootDirectory[i] = de
	}

	dataRegionOffset = lba + sectorCount

	fatLogger.Debugf(nil, "Root directory loaded: LBA=(%d) SECTORS=(%d) ENTRIES=(%d) DATA-REGION=(%d)", lba, sectorCount, entryCount, dataRegionOffset)

	return rootDirectory, dataRegionOffset, nil
}

// FindFile looks the given fixed-width name up in the root directory.
func (fr *Fat12Reader) FindFile(name [filenameBytesCount]byte) (de DirectoryEntry, found bool) {
	return fr.rootDirectory.FindFile(name)
}
