// Command auditverify replays an override audit journal offline.
//
//	auditverify [--pubkey FILE] PATH
//
// Exit status is 0 for an intact chain, 1 for a broken one and 2 for usage
// or I/O errors.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"zone_controller/internal/audit"
)

const (
	exitValid  = 0
	exitBroken = 1
	exitError  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("auditverify", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	pubPath := fs.String("pubkey", "", "hex Ed25519 public key file; enables signature checks")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: auditverify [--pubkey FILE] PATH")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitError
	}

	var opts []audit.VerifyOption
	if *pubPath != "" {
		pub, err := audit.LoadPublicKey(*pubPath)
		if err != nil {
			fmt.Fprintf(stderr, "load public key: %v\n", err)
			return exitError
		}
		opts = append(opts, audit.WithPublicKey(pub))
	}

	res, err := audit.VerifyFile(fs.Arg(0), opts...)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(stderr, "audit file not found")
		return exitError
	case err != nil:
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if !res.Valid {
		fmt.Fprintf(stdout, "chain broken at line %d (event index %d): %s\n", res.Line, res.Index, res.Reason)
		return exitBroken
	}
	fmt.Fprintf(stdout, "valid (%d events)\n", res.Events)
	return exitValid
}
