package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"

	"github.com/dsoprea/go-fat12"
)

const (
	exitOk = iota
	exitUsage
	exitImageOpen
	exitBootSector
	exitFat
	exitRootDirectory
	exitNotFound
	exitFileRead
	exitCorruptFat
)

type rootParameters struct {
	RawName bool `short:"r" long:"raw" description:"Match the filename as the exact 11-byte directory-entry name (e.g. 'README  TXT')"`
	Verbose bool `short:"v" long:"verbose" description:"Print a stack trace with each error"`

	Positional struct {
		ImageFilepath string `positional-arg-name:"image" description:"File-path of FAT12 image"`
		Filename      string `positional-arg-name:"filename" description:"Root-directory file to extract (e.g. README.TXT)"`
	} `positional-args:"yes" required:"yes"`
}

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

	os.Exit(run(os.Args[1:], imageFs, os.Stdout, os.Stderr))
}

type extractor struct {
	stderr  io.Writer
	verbose bool
}

// fail prints a diagnostic that names the failing stage and returns the exit
// code for it. A corrupt FAT always gets its own code.
func (e extractor) fail(code int, stage string, err error) int {
	fmt.Fprintf(e.stderr, "%s: %v\n", stage, err)

	if e.verbose == true {
		fmt.Fprintf(e.stderr, "\nStack:\n\n%s\n", log.Wrap(err).ErrorStack())
	}

	if log.Is(err, fat12.ErrCorruptFat) == true {
		return exitCorruptFat
	}

	return code
}

// run extracts one file and returns the process exit code. Only the file's
// bytes are written to stdout.
func run(arguments []string, fs afero.Fs, stdout, stderr io.Writer) int {
	rootArguments := new(rootParameters)

	p := flags.NewParser(rootArguments, flags.HelpFlag|flags.PassDoubleDash)

	extra, err := p.ParseArgs(arguments)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok == true && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
			return exitOk
		}

		fmt.Fprintf(stderr, "%s\n\n", err)
		p.WriteHelp(stderr)

		return exitUsage
	} else if len(extra) > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n\n", extra)
		p.WriteHelp(stderr)

		return exitUsage
	}

	e := extractor{
		stderr:  stderr,
		verbose: rootArguments.Verbose,
	}

	filename := rootArguments.Positional.Filename

	var name [11]byte

	if rootArguments.RawName == true {
		if len(filename) != len(name) {
			fmt.Fprintf(stderr, "raw name must be exactly (%d) bytes: [%s]\n", len(name), filename)
			return exitUsage
		}

		copy(name[:], filename)
	} else {
		name, err = fat12.NormalizeName(filename)
		if err != nil {
			fmt.Fprintf(stderr, "invalid filename: %v\n", err)
			return exitUsage
		}
	}

	f, err := fs.Open(rootArguments.Positional.ImageFilepath)
	if err != nil {
		return e.fail(exitImageOpen, "could not open image", err)
	}

	defer f.Close()

	fr := fat12.NewFat12Reader(f)

	err = fr.ParseBootSector()
	if err != nil {
		return e.fail(exitBootSector, "could not read boot sector", err)
	}

	err = fr.ParseFat()
	if err != nil {
		return e.fail(exitFat, "could not read FAT", err)
	}

	err = fr.ParseRootDirectory()
	if err != nil {
		return e.fail(exitRootDirectory, "could not read root directory", err)
	}

	de, found := fr.FindFile(name)
	if found == false {
		fmt.Fprintf(stderr, "file not found: [%s]\n", string(name[:]))
		return exitNotFound
	}

	size, err := fr.RequiredBufferSize(de)
	if err != nil {
		return e.fail(exitFileRead, "could not allocate file buffer", err)
	}

	buffer := make([]byte, size)

	_, err = fr.ReadFile(de, buffer)
	if err != nil {
		return e.fail(exitFileRead, "could not read file", err)
	}

	_, err = stdout.Write(buffer[:de.Size])
	if err != nil {
		return e.fail(exitFileRead, "could not write file", err)
	}

	return exitOk
}
