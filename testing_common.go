package fat12

import (
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// TestFile describes one root-directory entry to place in an image built by
// BuildTestImage().
type TestFile struct {
	// Name is either a human filename or an exact fixed-width name (see
	// NormalizeName).
	Name string

	Attributes FileAttributes
	Data       []byte

	// Clusters pins the chain. If empty, contiguous free clusters are
	// allocated for the data.
	Clusters []uint32
}

// Floppy144BootSectorHeader returns the geometry of a 1.44MB 3.5" floppy.
func Floppy144BootSectorHeader() BootSectorHeader {
	bsh := BootSectorHeader{
		JumpBoot:            [3]byte{0xeb, 0x3c, 0x90},
		BytesPerSector:      512,
		SectorsPerCluster:   1,
		ReservedSectors:     1,
		FatCount:            2,
		DirEntryCount:       224,
		TotalSectors:        2880,
		MediaDescriptorType: 0xf0,
		SectorsPerFat:       9,
		SectorsPerTrack:     18,
		Heads:               2,
		DriveNumber:         0,
		Signature:           0x29,
		VolumeId:            0x1234abcd,
	}

	copy(bsh.OemIdentifier[:], "MSWIN4.1")
	copy(bsh.VolumeLabel[:], "TESTVOLUME ")
	copy(bsh.SystemId[:], "FAT12   ")

	return bsh
}

// BuildTestImage lays out a complete FAT12 image in memory: boot sector, every
// FAT copy, the root directory, and the file data.
func BuildTestImage(bsh BootSectorHeader, files []TestFile) (image []byte, err error) {
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

	err = bsh.validateGeometry()
	log.PanicIf(err)

	sectorSize := int(bsh.SectorSize())
	clusterSize := int(bsh.ClusterSize())

	image = make([]byte, int(bsh.SectorCount())*sectorSize)

	bootSectorData, err := restruct.Pack(defaultEncoding, &bsh)
	log.PanicIf(err)

	copy(image, bootSectorData)

	if sectorSize >= 512 {
		image[510] = 0x55
		image[511] = 0xaa
	}

	fat := make(Fat, int(bsh.SectorsPerFat)*sectorSize)

	err = fat.SetEntry(0, MappedCluster(0xf00|uint16(bsh.MediaDescriptorType)))
	log.PanicIf(err)

	err = fat.SetEntry(1, 0xfff)
	log.PanicIf(err)

	if len(files) > int(bsh.DirEntryCount) {
		log.Panicf("too many files for the root directory: (%d) > (%d)", len(files), bsh.DirEntryCount)
	}

	rootDirectoryOffset := int(bsh.RootDirectoryOffset()) * sectorSize
	dataRegionOffset := int(bsh.DataRegionOffset()) * sectorSize

	nextFreeCluster := uint32(firstDataCluster)

	for i, file := range files {
		clusters := file.Clusters
		if len(clusters) == 0 && len(file.Data) > 0 {
			clusterCount := (len(file.Data) + clusterSize - 1) / clusterSize

			clusters = make([]uint32, clusterCount)
			for j := range clusters {
				clusters[j] = nextFreeCluster
				nextFreeCluster++
			}
		}

		for j, clusterNumber := range clusters {
			if clusterNumber < firstDataCluster {
				log.Panicf("cluster can not be less than (2): (%d)", clusterNumber)
			}

			if clusterNumber >= nextFreeCluster {
				nextFreeCluster = clusterNumber + 1
			}

			next := MappedCluster(0xfff)
			if j < len(clusters)-1 {
				next = MappedCluster(clusters[j+1])
			}

			err := fat.SetEntry(clusterNumber, next)
			log.PanicIf(err)

			start := j * clusterSize
			if start < len(file.Data) {
				end := start + clusterSize
				if end > len(file.Data) {
					end = len(file.Data)
				}

				offset := dataRegionOffset + int(clusterNumber-firstDataCluster)*clusterSize
				copy(image[offset:offset+clusterSize], file.Data[start:end])
			}
		}

		name, err := NormalizeName(file.Name)
		log.PanicIf(err)

		attributes := file.Attributes
		if attributes == 0 {
			attributes = 0x20
		}

		de := DirectoryEntry{
			Name:         name,
			Attributes:   attributes,
			CreatedTime:  0x5401,
			CreatedDate:  0x2b14,
			AccessedDate: 0x2b14,
			ModifiedTime: 0x5401,
			ModifiedDate: 0x2b14,
			Size:         uint32(len(file.Data)),
		}

		if len(clusters) > 0 {
			de.FirstClusterLow = uint16(clusters[0])
		}

		directoryEntryData, err := restruct.Pack(defaultEncoding, &de)
		log.PanicIf(err)

		offset := rootDirectoryOffset + i*directoryEntryBytesCount
		copy(image[offset:offset+directoryEntryBytesCount], directoryEntryData)
	}

	for i := 0; i < int(bsh.FatCount); i++ {
		offset := (int(bsh.FatRegionOffset()) + i*int(bsh.SectorsPerFat)) * sectorSize
		copy(image[offset:], fat)
	}

	return image, nil
}
