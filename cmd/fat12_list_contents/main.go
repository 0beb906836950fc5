package main

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"path/filepath"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"

	"github.com/dsoprea/go-fat12"
)

type rootParameters struct {
	Filepath       string `short:"f" long:"filepath" description:"File-path of FAT12 image" required:"true"`
	FilenameFilter string `short:"p" long:"pattern" description:"Filename filter"`
	ShowDetail     bool   `short:"d" long:"detail" description:"Show additional entry detail"`
}

var (
	rootArguments = new(rootParameters)
)

var (
	imageFs = afero.NewReadOnlyFs(afero.NewOsFs())
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	err = listContents(imageFs, os.Stdout)
	log.PanicIf(err)
}

func listContents(fs afero.Fs, w io.Writer) (err error) {
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

	f, err := fs.Open(rootArguments.Filepath)
	log.PanicIf(err)

	defer f.Close()

	fr := fat12.NewFat12Reader(f)

	err = fr.Parse()
	log.PanicIf(err)

	rootDirectory := fr.RootDirectory()

	if rootArguments.ShowDetail == true {
		if label, found := rootDirectory.VolumeLabel(); found == true {
			fmt.Fprintf(w, "Volume label: [%s]\n", label)
			fmt.Fprintf(w, "\n")
		}
	}

	for _, de := range rootDirectory.Files() {
		filename := de.Filename()

		if rootArguments.FilenameFilter != "" {
			isMatched, err := filepath.Match(rootArguments.FilenameFilter, filename)
			log.PanicIf(err)

			if isMatched != true {
				continue
			}
		}

		if rootArguments.ShowDetail == true {
			fmt.Fprintf(w, "## %s\n", filename)
			fmt.Fprintf(w, "\n")

			de.DumpTo(w)

			if de.Size == 0 {
				fmt.Fprintf(w, "Clusters: (none)\n")
			} else {
				visitedClusters, err := fr.EnumerateClusters(de.FirstCluster(), func(fc *fat12.Fat12Cluster) (bool, error) {
					return true, nil
				})

				if err != nil {
					fmt.Fprintf(w, "Clusters: chain could not be followed: %v\n", err)
				} else {
					fmt.Fprintf(w, "Clusters: %v\n", visitedClusters)
				}
			}

			fmt.Fprintf(w, "\n")
		} else {
			fmt.Fprintf(w, "%15s %30s %s\n", humanize.Comma(int64(de.Size)), de.ModifiedTimestamp(), filename)
		}
	}

	return nil
}
