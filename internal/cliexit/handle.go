package cliexit

import (
	"fmt"
	"os"
)

// Handle prints err to stderr (if non-nil) and exits the process with
// the code its Kind maps to. It is the single place either binary's
// main turns an error into an exit status, threading through distinct
// codes per error kind instead of flattening every failure to exit 1.
// (qvm-remote's main also calls os.Exit itself on success, to pass the
// remote exit code through.)
func Handle(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "qvm-remote:", err)
	os.Exit(ExitCodeOf(err))
}
