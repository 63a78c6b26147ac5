// qvm-remote is the guest-resident submitter: it turns a single shell
// command into an authenticated, queued request for the control
// domain's executor daemon and replays the result back to the caller.
package main

import (
	"os"

	"github.com/GabrieleRisso/qvm-remote/cmd/qvm-remote/cmd"
	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cliexit.Handle(err)
	}
	os.Exit(cmd.RemoteExitCode)
}
