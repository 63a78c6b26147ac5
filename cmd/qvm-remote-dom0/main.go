// qvm-remote-dom0 is the control-domain executor daemon: it polls every
// authorised guest's pending queue, authenticates and runs requests in a
// sandbox, and writes results back, alongside the authorize/revoke/keys
// administrative surface.
package main

import (
	"github.com/GabrieleRisso/qvm-remote/cmd/qvm-remote-dom0/cmd"
	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
)

func main() {
	cliexit.Handle(cmd.Execute())
}
