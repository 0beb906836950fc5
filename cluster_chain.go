package fat12

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/dsoprea/go-logging"
)

var (
	// ErrCorruptFat indicates a cluster chain that loops, leaves the data
	// region, runs through a free/reserved/bad entry, or disagrees with the
	// size of the file that owns it.
	ErrCorruptFat = errors.New("FAT cluster-chain is corrupt")

	// ErrBufferTooSmall indicates an output buffer smaller than
	// RequiredBufferSize().
	ErrBufferTooSmall = errors.New("buffer too small for file")

	// ErrFileTooLarge indicates a file whose declared size needs more clusters
	// than the data region has. No buffer is allocated for it.
	ErrFileTooLarge = errors.New("file size exceeds the data region")
)

// panicCorruptFat logs the specifics of a chain problem and panics with
// ErrCorruptFat so that callers can test for it with log.Is().
func panicCorruptFat(format string, args ...interface{}) {
	fatLogger.Warningf(nil, format, args...)
	log.PanicIf(ErrCorruptFat)
}

// Fat12Cluster manages reads on the sectors in a cluster.
type Fat12Cluster struct {
	fr *Fat12Reader

	clusterNumber uint32
	lba           uint32
}

func newFat12Cluster(fr *Fat12Reader, clusterNumber uint32) *Fat12Cluster {
	if clusterNumber < firstDataCluster {
		log.Panicf("cluster-number can not be less than two: (%d)", clusterNumber)
	}

	// Only clusters numbering (2) and above are stored on disk.
	lba := fr.dataRegionOffset + (clusterNumber-firstDataCluster)*fr.SectorsPerCluster()

	return &Fat12Cluster{
		fr:            fr,
		clusterNumber: clusterNumber,
		lba:           lba,
	}
}

// ClusterNumber gets the number of the cluster that this instance represents.
func (fc *Fat12Cluster) ClusterNumber() uint32 {
	return fc.clusterNumber
}

// Lba returns the address of the first sector of the cluster.
func (fc *Fat12Cluster) Lba() uint32 {
	return fc.lba
}

// ReadInto reads the whole cluster into the given buffer, which must be exactly
// one cluster long.
func (fc *Fat12Cluster) ReadInto(buffer []byte) (err error) {
	return fc.fr.readSectorsInto(fc.lba, fc.fr.SectorsPerCluster(), buffer)
}

// Read returns the data of the whole cluster.
func (fc *Fat12Cluster) Read() (data []byte, err error) {
	return fc.fr.ReadSectors(fc.lba, fc.fr.SectorsPerCluster())
}

func (fc *Fat12Cluster) String() string {
	return fmt.Sprintf("Cluster<NUMBER=(%d) LBA=(%d)>", fc.clusterNumber, fc.lba)
}

// ClusterVisitorFunc is a visitor callback as all clusters in the chain are
// visited.
type ClusterVisitorFunc func(fc *Fat12Cluster) (doContinue bool, err error)

// MaxChainLength is the most clusters any chain can legitimately have: the
// number of clusters in the data region, or, if the volume doesn't record its
// size, the number of entries the FAT can describe.
func (fr *Fat12Reader) MaxChainLength() uint32 {
	fatEntryCount := uint32(0)
	if n := fr.fat.EntryCount(); n > firstDataCluster {
		fatEntryCount = n - firstDataCluster
	}

	maxCount := fr.bsh.DataClusterCount()
	if maxCount == 0 || maxCount > fatEntryCount {
		maxCount = fatEntryCount
	}

	return maxCount
}

// EnumerateClusters calls the given callback for each cluster in the chain
// starting from the given cluster. The walk ends at the first FAT entry in
// [0xFF8, 0xFFF] and never visits more than MaxChainLength() clusters.
func (fr *Fat12Reader) EnumerateClusters(startingClusterNumber uint32, cb ClusterVisitorFunc) (visitedClusters []uint32, err error) {
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

	if fr.isParsed == false {
		log.Panicf("filesystem not parsed")
	}

	maxCount := fr.MaxChainLength()
	lastClusterNumber := firstDataCluster + maxCount - 1

	visitedClusters = make([]uint32, 0)

	currentClusterNumber := startingClusterNumber
	for {
		if currentClusterNumber < firstDataCluster {
			panicCorruptFat("cluster-number too low: (%d)", currentClusterNumber)
		} else if currentClusterNumber > lastClusterNumber {
			panicCorruptFat("cluster-number beyond the data region: (%d) > (%d)", currentClusterNumber, lastClusterNumber)
		} else if uint32(len(visitedClusters)) >= maxCount {
			panicCorruptFat("cluster-chain from (%d) longer than (%d) clusters; it probably loops", startingClusterNumber, maxCount)
		}

		visitedClusters = append(visitedClusters, currentClusterNumber)

		fc := newFat12Cluster(fr, currentClusterNumber)

		doContinue, err := cb(fc)
		log.PanicIf(err)

		if doContinue == false {
			break
		}

		nextMappedCluster, err := fr.fat.Entry(currentClusterNumber)
		if err != nil {
			panicCorruptFat("could not read FAT entry for cluster (%d): %v", currentClusterNumber, err)
		}

		if nextMappedCluster.IsLast() == true {
			break
		} else if nextMappedCluster.IsBad() == true {
			panicCorruptFat("cluster (%d) links to a bad cluster", currentClusterNumber)
		}

		currentClusterNumber = uint32(nextMappedCluster)
	}

	return visitedClusters, nil
}

// RequiredBufferSize returns the size of the buffer that ReadFile() needs for
// the given entry: the file size rounded up to whole clusters, since the last
// cluster is always read in full.
func (fr *Fat12Reader) RequiredBufferSize(de DirectoryEntry) (size int, err error) {
	clusterSize := uint64(fr.ClusterSize())
	if clusterSize == 0 {
		return 0, log.Errorf("cluster-size not known; boot-sector not loaded")
	}

	clusterCount := (uint64(de.Size) + clusterSize - 1) / clusterSize
	if clusterCount > uint64(fr.MaxChainLength()) {
		fatLogger.Warningf(nil, "File [%s] needs (%d) clusters but only (%d) exist.", de.Filename(), clusterCount, fr.MaxChainLength())
		return 0, log.Wrap(ErrFileTooLarge)
	}

	return int(clusterCount * clusterSize), nil
}

// ReadFile reads every cluster of the given file into the buffer and returns
// the number of bytes written, which is always a whole number of clusters.
// Only the first `de.Size` bytes are file data; the caller must truncate.
func (fr *Fat12Reader) ReadFile(de DirectoryEntry, buffer []byte) (n int, err error) {
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

	requiredSize, err := fr.RequiredBufferSize(de)
	log.PanicIf(err)

	if len(buffer) < requiredSize {
		fatLogger.Warningf(nil, "Buffer for [%s] is (%d) bytes but (%d) are required.", de.Filename(), len(buffer), requiredSize)
		log.PanicIf(ErrBufferTooSmall)
	}

	if de.Size == 0 {
		return 0, nil
	}

	clusterSize := int(fr.ClusterSize())

	cb := func(fc *Fat12Cluster) (doContinue bool, err error) {
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

		if n+clusterSize > requiredSize {
			panicCorruptFat("cluster-chain of [%s] is longer than its size (%d)", de.Filename(), de.Size)
		}

		err = fc.ReadInto(buffer[n : n+clusterSize])
		log.PanicIf(err)

		n += clusterSize

		return true, nil
	}

	visitedClusters, err := fr.EnumerateClusters(de.FirstCluster(), cb)
	log.PanicIf(err)

	if n != requiredSize {
		panicCorruptFat("cluster-chain of [%s] ended early: (%d) < (%d)", de.Filename(), n, requiredSize)
	}

	fatLogger.Debugf(nil, "Read [%s]: CLUSTERS=(%d) BYTES=(%d)", de.Filename(), len(visitedClusters), n)

	return n, nil
}

// WriteFromClusterChain writes the file's data to the given writer, truncated
// to its declared size, and returns the clusters that were visited. The chain
// must end exactly at the last cluster the size calls for.
func (fr *Fat12Reader) WriteFromClusterChain(de DirectoryEntry, w io.Writer) (visitedClusters []uint32, err error) {
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

	dataSize := uint64(de.Size)
	if dataSize == 0 {
		return []uint32{}, nil
	}

	_, err = fr.RequiredBufferSize(de)
	log.PanicIf(err)

	clusterSize := uint64(fr.ClusterSize())
	buffer := make([]byte, clusterSize)
	written := uint64(0)

	cb := func(fc *Fat12Cluster) (doContinue bool, err error) {
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

		if written >= dataSize {
			panicCorruptFat("cluster-chain of [%s] is longer than its size (%d)", de.Filename(), de.Size)
		}

		err = fc.ReadInto(buffer)
		log.PanicIf(err)

		data := buffer

		// If we're in the last cluster.
		remaining := dataSize - written
		if remaining < clusterSize {
			data = buffer[:remaining]
		}

		_, err = w.Write(data)
		log.PanicIf(err)

		written += uint64(len(data))

		return true, nil
	}

	visitedClusters, err = fr.EnumerateClusters(de.FirstCluster(), cb)
	log.PanicIf(err)

	if written != dataSize {
		panicCorruptFat("written bytes do not equal data-size: (%d) != (%d)", written, dataSize)
	}

	return visitedClusters, nil
}
