package fat12

import (
	"fmt"
	"reflect"

	"github.com/dsoprea/go-logging"
)

const (
	// fatEntryMask isolates the twelve bits of one FAT entry.
	fatEntryMask = 0x0fff

	// badClusterMarker marks a cluster with bad sectors.
	badClusterMarker = 0x0ff7

	// endOfChainMarker is the lowest of the values that terminate a chain.
	endOfChainMarker = 0x0ff8
)

// MappedCluster represents one cluster entry in the FAT.
type MappedCluster uint16

// IsFree indicates that the cluster is not allocated.
func (mc MappedCluster) IsFree() bool {
	return mc == 0
}

// IsReserved indicates a value that can never appear within a chain.
func (mc MappedCluster) IsReserved() bool {
	return mc == 1
}

// IsBad indicates that this cluster has been marked as having one or more bad
// sectors.
func (mc MappedCluster) IsBad() bool {
	return mc == badClusterMarker
}

// IsLast indicates that no more clusters follow the cluster that led to this
// entry. Every value from 0xFF8 through 0xFFF qualifies.
func (mc MappedCluster) IsLast() bool {
	return mc >= endOfChainMarker
}

// String returns a description of the entry.
func (mc MappedCluster) String() string {
	switch {
	case mc.IsFree() == true:
		return "MappedCluster<FREE>"
	case mc.IsReserved() == true:
		return "MappedCluster<RESERVED>"
	case mc.IsBad() == true:
		return "MappedCluster<BAD>"
	case mc.IsLast() == true:
		return fmt.Sprintf("MappedCluster<LAST=(0x%03x)>", uint16(mc))
	}

	return fmt.Sprintf("MappedCluster<NEXT=(%d)>", uint16(mc))
}

// Fat is the raw, packed allocation table. Two 12-bit entries share every
// three bytes.
type Fat []byte

// EntryCount returns how many whole 12-bit entries the table can describe.
func (fat Fat) EntryCount() uint32 {
	return uint32(len(fat)) * 2 / 3
}

// entryOffset returns the index of the first byte of the 16-bit word that
// holds the given cluster's entry.
func entryOffset(clusterNumber uint32) uint32 {
	return clusterNumber * 3 / 2
}

// Entry decodes the FAT entry for the given cluster: the low twelve bits of the
// little-endian word for even clusters and the high twelve bits for odd ones.
func (fat Fat) Entry(clusterNumber uint32) (mc MappedCluster, err error) {
	offset := entryOffset(clusterNumber)
	if uint64(offset)+2 > uint64(len(fat)) {
		return 0, log.Errorf("cluster exceeds FAT bounds: (%d) (offset %d) (size %d)", clusterNumber, offset, len(fat))
	}

	word := defaultEncoding.Uint16(fat[offset : offset+2])

	if clusterNumber%2 == 0 {
		return MappedCluster(word & fatEntryMask), nil
	}

	return MappedCluster(word >> 4), nil
}

// SetEntry encodes the given value into the entry for the given cluster,
// leaving the neighboring entry's bits untouched. The reader never writes to an
// image; this exists to build tables in memory.
func (fat Fat) SetEntry(clusterNumber uint32, value MappedCluster) (err error) {
	offset := entryOffset(clusterNumber)
	if uint64(offset)+2 > uint64(len(fat)) {
		return log.Errorf("cluster exceeds FAT bounds: (%d) (offset %d) (size %d)", clusterNumber, offset, len(fat))
	}

	v := uint16(value) & fatEntryMask

	if clusterNumber%2 == 0 {
		fat[offset] = byte(v)
		fat[offset+1] = fat[offset+1]&0xf0 | byte(v>>8)
	} else {
		fat[offset] = fat[offset]&0x0f | byte(v<<4)
		fat[offset+1] = byte(v >> 4)
	}

	return nil
}

func (fr *Fat12Reader) loadFat() (fat Fat, err error) {
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

	// We only ever use the first copy.

	data, err := fr.ReadSectors(fr.bsh.FatRegionOffset(), uint32(fr.bsh.SectorsPerFat))
	log.PanicIf(err)

	fatLogger.Debugf(nil, "FAT loaded: LBA=(%d) SIZE=(%d) ENTRIES=(%d)", fr.bsh.FatRegionOffset(), len(data), Fat(data).EntryCount())

	return Fat(data), nil
}
