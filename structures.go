// This package manages the low-level, on-disk storage structures.

package fat12

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

const (
	// bootSectorHeaderSize is the size of the BPB plus the extended boot
	// record. The boot code that follows is not read.
	bootSectorHeaderSize = 62

	// firstDataCluster is the cluster that is stored at the very beginning of
	// the data region. Clusters (0) and (1) are reserved.
	firstDataCluster = 2
)

var (
	fatLogger = log.NewLogger("fat12.structures")
)

var (
	// ErrInvalidGeometry indicates that one of the boot-sector values that the
	// offset math depends on is zero.
	ErrInvalidGeometry = errors.New("boot-sector geometry not valid")

	// ErrSectorOutOfRange indicates a read of sectors that lie past the end of
	// the volume or of the image itself.
	ErrSectorOutOfRange = errors.New("sectors beyond the end of the image")
)

// BootSectorHeader describes the main set of filesystem parameters. The field
// order and sizes match the on-disk layout exactly.
type BootSectorHeader struct {
	// JumpBoot is the jump instruction into the boot code.
	JumpBoot [3]byte

	// OemIdentifier names the system that formatted the volume.
	OemIdentifier [8]byte

	// BytesPerSector is the size of every sector. All logical addressing is
	// expressed in sectors of this size.
	BytesPerSector uint16

	// SectorsPerCluster is the allocation-unit size in sectors.
	SectorsPerCluster uint8

	// ReservedSectors is the number of sectors before the first FAT,
	// including the boot sector itself.
	ReservedSectors uint16

	// FatCount is the number of FAT copies.
	FatCount uint8

	// DirEntryCount is the number of 32-byte entries in the root directory.
	DirEntryCount uint16

	// TotalSectors is the sector count of the volume. Zero if the count does
	// not fit in sixteen bits, in which case LargeSectorCount is used.
	TotalSectors uint16

	// MediaDescriptorType describes the media (0xF0 for a 3.5" floppy).
	MediaDescriptorType uint8

	// SectorsPerFat is the size of one FAT copy.
	SectorsPerFat uint16

	SectorsPerTrack uint16
	Heads           uint16
	HiddenSectors   uint32

	// LargeSectorCount is the sector count when TotalSectors is zero.
	LargeSectorCount uint32

	// Extended boot record. Not used by any of the reading logic.

	DriveNumber uint8
	Reserved    uint8
	Signature   uint8
	VolumeId    uint32

	// VolumeLabel is padded with spaces.
	VolumeLabel [11]byte

	SystemId [8]byte
}

// SectorSize returns the effective sector-size.
func (bsh BootSectorHeader) SectorSize() uint32 {
	return uint32(bsh.BytesPerSector)
}

// ClusterSize returns the number of bytes in one cluster.
func (bsh BootSectorHeader) ClusterSize() uint32 {
	return uint32(bsh.SectorsPerCluster) * uint32(bsh.BytesPerSector)
}

// SectorCount returns the total number of sectors in the volume, whichever of
// the two count fields carries it.
func (bsh BootSectorHeader) SectorCount() uint32 {
	if bsh.TotalSectors != 0 {
		return uint32(bsh.TotalSectors)
	}

	return bsh.LargeSectorCount
}

// FatRegionOffset is the LBA of the first FAT.
func (bsh BootSectorHeader) FatRegionOffset() uint32 {
	return uint32(bsh.ReservedSectors)
}

// RootDirectoryOffset is the LBA of the root directory, just after the reserved
// sectors and all FAT copies.
func (bsh BootSectorHeader) RootDirectoryOffset() uint32 {
	return uint32(bsh.ReservedSectors) + uint32(bsh.SectorsPerFat)*uint32(bsh.FatCount)
}

// RootDirectorySectorCount is the number of whole sectors the root directory
// occupies. A partially-filled last sector still counts.
func (bsh BootSectorHeader) RootDirectorySectorCount() uint32 {
	size := uint32(directoryEntryBytesCount) * uint32(bsh.DirEntryCount)
	sectorSize := bsh.SectorSize()

	sectorCount := size / sectorSize
	if size%sectorSize > 0 {
		sectorCount++
	}

	return sectorCount
}

// DataRegionOffset is the LBA of cluster (2).
func (bsh BootSectorHeader) DataRegionOffset() uint32 {
	return bsh.RootDirectoryOffset() + bsh.RootDirectorySectorCount()
}

// DataClusterCount returns the number of clusters that fit in the data region.
// If the volume does not describe its own size, zero is returned.
func (bsh BootSectorHeader) DataClusterCount() uint32 {
	totalSectors := bsh.SectorCount()
	dataRegionOffset := bsh.DataRegionOffset()

	if totalSectors <= dataRegionOffset {
		return 0
	}

	return (totalSectors - dataRegionOffset) / uint32(bsh.SectorsPerCluster)
}

// Label returns the volume label without the space padding.
func (bsh BootSectorHeader) Label() string {
	return trimPadding(bsh.VolumeLabel[:])
}

// Dump prints all of the BSH parameters along with the common calculated ones.
func (bsh BootSectorHeader) Dump() {
	fmt.Printf("Boot Sector Header\n")
	fmt.Printf("==================\n")
	fmt.Printf("\n")

	fmt.Printf("JumpBoot: [% x]\n", bsh.JumpBoot[:])
	fmt.Printf("OemIdentifier: [%s]\n", string(bsh.OemIdentifier[:]))
	fmt.Printf("BytesPerSector: (%d)\n", bsh.BytesPerSector)
	fmt.Printf("SectorsPerCluster: (%d)\n", bsh.SectorsPerCluster)
	fmt.Printf("-> Cluster-size: (%d)\n", bsh.ClusterSize())
	fmt.Printf("ReservedSectors: (%d)\n", bsh.ReservedSectors)
	fmt.Printf("FatCount: (%d)\n", bsh.FatCount)
	fmt.Printf("DirEntryCount: (%d)\n", bsh.DirEntryCount)
	fmt.Printf("TotalSectors: (%d)\n", bsh.TotalSectors)
	fmt.Printf("MediaDescriptorType: (0x%02x)\n", bsh.MediaDescriptorType)
	fmt.Printf("SectorsPerFat: (%d)\n", bsh.SectorsPerFat)
	fmt.Printf("SectorsPerTrack: (%d)\n", bsh.SectorsPerTrack)
	fmt.Printf("Heads: (%d)\n", bsh.Heads)
	fmt.Printf("HiddenSectors: (%d)\n", bsh.HiddenSectors)
	fmt.Printf("LargeSectorCount: (%d)\n", bsh.LargeSectorCount)
	fmt.Printf("\n")

	fmt.Printf("DriveNumber: (0x%02x)\n", bsh.DriveNumber)
	fmt.Printf("Signature: (0x%02x)\n", bsh.Signature)
	fmt.Printf("VolumeId: (0x%08x)\n", bsh.VolumeId)
	fmt.Printf("VolumeLabel: [%s]\n", bsh.Label())
	fmt.Printf("SystemId: [%s]\n", string(bsh.SystemId[:]))
	fmt.Printf("\n")

	if bsh.validateGeometry() == nil {
		fmt.Printf("-> FAT offset: (%d)\n", bsh.FatRegionOffset())
		fmt.Printf("-> Root-directory offset: (%d)\n", bsh.RootDirectoryOffset())
		fmt.Printf("-> Root-directory sectors: (%d)\n", bsh.RootDirectorySectorCount())
		fmt.Printf("-> Data-region offset: (%d)\n", bsh.DataRegionOffset())
		fmt.Printf("-> Data clusters: (%d)\n", bsh.DataClusterCount())
		fmt.Printf("\n")
	}
}

// String returns a description of BSH.
func (bsh BootSectorHeader) String() string {
	return fmt.Sprintf("BootSector<ID=(0x%08x) LABEL=[%s] SECTOR-SIZE=(%d) CLUSTER-SIZE=(%d)>", bsh.VolumeId, bsh.Label(), bsh.BytesPerSector, bsh.ClusterSize())
}

// validateGeometry checks every value that later offset math divides by or
// depends on.
func (bsh BootSectorHeader) validateGeometry() (err error) {
	if bsh.BytesPerSector == 0 {
		return log.Wrap(ErrInvalidGeometry)
	} else if bsh.SectorsPerCluster == 0 {
		return log.Wrap(ErrInvalidGeometry)
	} else if bsh.ReservedSectors == 0 {
		return log.Wrap(ErrInvalidGeometry)
	} else if bsh.FatCount == 0 {
		return log.Wrap(ErrInvalidGeometry)
	} else if bsh.SectorsPerFat == 0 {
		return log.Wrap(ErrInvalidGeometry)
	} else if bsh.DirEntryCount == 0 {
		return log.Wrap(ErrInvalidGeometry)
	}

	return nil
}

// NewBootSectorHeaderFromReader decodes the boot sector header from the current
// position of the given reader (which should be the start of the image).
func NewBootSectorHeaderFromReader(r io.Reader) (bsh BootSectorHeader, err error) {
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

	raw := make([]byte, bootSectorHeaderSize)

	_, err = io.ReadFull(r, raw)
	log.PanicIf(err)

	err = restruct.Unpack(raw, defaultEncoding, &bsh)
	log.PanicIf(err)

	err = bsh.validateGeometry()
	log.PanicIf(err)

	return bsh, nil
}

// Fat12Reader knows where to find all of the statically-located structures and
// how to parse them, and how to find clusters and chains of clusters.
type Fat12Reader struct {
	rs io.ReadSeeker

	bsh BootSectorHeader

	fat           Fat
	rootDirectory RootDirectory

	// dataRegionOffset is the LBA of cluster (2).
	dataRegionOffset uint32

	// imageSize is the size of the backing image in bytes, or zero if it is
	// not known.
	imageSize int64

	isParsed bool
}

// NewFat12Reader returns a new instance of Fat12Reader.
func NewFat12Reader(rs io.ReadSeeker) *Fat12Reader {
	return &Fat12Reader{
		rs: rs,
	}
}

func (fr *Fat12Reader) readBootSectorHead() (bsh BootSectorHeader, err error) {
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

	imageSize, err := fr.rs.Seek(0, io.SeekEnd)
	log.PanicIf(err)

	fr.imageSize = imageSize

	_, err = fr.rs.Seek(0, io.SeekStart)
	log.PanicIf(err)

	bsh, err = NewBootSectorHeaderFromReader(fr.rs)
	log.PanicIf(err)

	fatLogger.Debugf(nil, "Boot-sector read: %s", bsh)

	return bsh, nil
}

// checkSectorRange makes sure that the given sectors exist, both in the volume
// that the boot sector describes and in the image, before any buffer is sized
// for them.
func (fr *Fat12Reader) checkSectorRange(lba, count uint32) (err error) {
	sectorSize := uint64(fr.bsh.SectorSize())
	if sectorSize == 0 {
		return log.Errorf("sector-size not known; boot-sector not loaded")
	}

	end := uint64(lba) + uint64(count)

	if sectorCount := uint64(fr.bsh.SectorCount()); sectorCount > 0 && end > sectorCount {
		fatLogger.Warningf(nil, "Read of (%d) sectors at LBA (%d) passes the end of the volume (%d).", count, lba, sectorCount)
		return log.Wrap(ErrSectorOutOfRange)
	}

	if fr.imageSize > 0 && end*sectorSize > uint64(fr.imageSize) {
		fatLogger.Warningf(nil, "Read of (%d) sectors at LBA (%d) passes the end of the image (%d bytes).", count, lba, fr.imageSize)
		return log.Wrap(ErrSectorOutOfRange)
	}

	return nil
}

// readSectorsInto reads `count` sectors starting at `lba` into the given
// buffer, which must be exactly the size of those sectors.
func (fr *Fat12Reader) readSectorsInto(lba, count uint32, buffer []byte) (err error) {
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

	err = fr.checkSectorRange(lba, count)
	log.PanicIf(err)

	sectorSize := int64(fr.bsh.SectorSize())

	byteCount := int64(count) * sectorSize
	if int64(len(buffer)) != byteCount {
		log.Panicf("sector buffer not the right size: (%d) != (%d)", len(buffer), byteCount)
	}

	offset := int64(lba) * sectorSize

	_, err = fr.rs.Seek(offset, io.SeekStart)
	log.PanicIf(err)

	_, err = io.ReadFull(fr.rs, buffer)
	if err != nil {
		log.Panicf("could not read (%d) sectors at LBA (%d): %v", count, lba, err)
	}

	return nil
}

// ReadSectors reads `count` whole sectors starting at logical block address
// `lba`.
func (fr *Fat12Reader) ReadSectors(lba, count uint32) (data []byte, err error) {
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

	err = fr.checkSectorRange(lba, count)
	log.PanicIf(err)

	data = make([]byte, int(count)*int(fr.bsh.SectorSize()))

	err = fr.readSectorsInto(lba, count, data)
	log.PanicIf(err)

	return data, nil
}

// ParseBootSector loads only the boot sector. Parse() calls this.
func (fr *Fat12Reader) ParseBootSector() (err error) {
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

	bsh, err := fr.readBootSectorHead()
	log.PanicIf(err)

	fr.bsh = bsh

	return nil
}

// ParseFat loads the first FAT. The boot sector must already be loaded.
func (fr *Fat12Reader) ParseFat() (err error) {
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

	fat, err := fr.loadFat()
	log.PanicIf(err)

	fr.fat = fat

	return nil
}

// ParseRootDirectory loads the root directory and establishes where the data
// region begins. The boot sector must already be loaded.
func (fr *Fat12Reader) ParseRootDirectory() (err error) {
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

	rootDirectory, dataRegionOffset, err := fr.loadRootDirectory()
	log.PanicIf(err)

	fr.rootDirectory = rootDirectory
	fr.dataRegionOffset = dataRegionOffset
	fr.isParsed = true

	return nil
}

// Parse loads all of the main filesystem structures: the boot sector, the FAT,
// and the root directory. This is always a small read (does not scale with the
// size of the files).
func (fr *Fat12Reader) Parse() (err error) {
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

	err = fr.ParseBootSector()
	log.PanicIf(err)

	err = fr.ParseFat()
	log.PanicIf(err)

	err = fr.ParseRootDirectory()
	log.PanicIf(err)

	return nil
}

// BootSector returns the loaded boot-sector header.
func (fr *Fat12Reader) BootSector() BootSectorHeader {
	return fr.bsh
}

// SectorSize is the sector-size from the boot sector.
func (fr *Fat12Reader) SectorSize() uint32 {
	return fr.bsh.SectorSize()
}

// SectorsPerCluster is the sectors-per-cluster from the boot sector.
func (fr *Fat12Reader) SectorsPerCluster() uint32 {
	return uint32(fr.bsh.SectorsPerCluster)
}

// ClusterSize is the number of bytes in each cluster.
func (fr *Fat12Reader) ClusterSize() uint32 {
	return fr.bsh.ClusterSize()
}

// DataRegionOffset is the LBA at which cluster (2) is stored.
func (fr *Fat12Reader) DataRegionOffset() uint32 {
	return fr.dataRegionOffset
}

// Fat returns the raw, packed FAT.
func (fr *Fat12Reader) Fat() Fat {
	return fr.fat
}

// RootDirectory returns every entry of the root directory.
func (fr *Fat12Reader) RootDirectory() RootDirectory {
	return fr.rootDirectory
}
