// Command ubigeo searches and validates Peruvian locations and manages an
// organization's work sites with an offline-first local cache.
//
// Usage:
//
//	ubigeo search miraflores
//	ubigeo resolve Huaraz
//	ubigeo sites add --name "Sede central" Lima Lima Miraflores
//	ubigeo sites sync
//
// Configuration is read from ubigeo.yaml ($HOME/.ubigeo or the working
// directory), UBIGEO_* environment variables and a .env file.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one command line and releases everything it opened.
func execute(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}
