package main

import (
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"

	"github.com/dsoprea/go-fat12"
)

type rootParameters struct {
	Filepath string `short:"f" long:"filepath" description:"File-path of FAT12 image" required:"true"`
}

var (
	rootArguments = new(rootParameters)
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

	fs := afero.NewReadOnlyFs(afero.NewOsFs())

	f, err := fs.Open(rootArguments.Filepath)
	log.PanicIf(err)

	defer f.Close()

	fr := fat12.NewFat12Reader(f)

	// Only the boot sector. This still works when the rest of the image is
	// damaged.
	err = fr.ParseBootSector()
	log.PanicIf(err)

	fr.BootSector().Dump()
}
