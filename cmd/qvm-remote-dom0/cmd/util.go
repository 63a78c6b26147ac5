package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// confirmPhrase prompts for a literal confirmation phrase before a
// boot-time state change, refusing automatically when stdin isn't a
// terminal — the CLI equivalent of an installer script gating its
// `read -rp` on `-t 0`, so an unattended invocation must pass --yes
// instead of hanging on input it will never receive.
func confirmPhrase(cmd *cobra.Command, phrase string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Type %q to confirm: ", phrase)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line) == phrase
}

// confirmYesNo is the lighter-weight [y/N] prompt used for reversible
// actions, gated the same way as confirmPhrase.
func confirmYesNo(cmd *cobra.Command, question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// systemctl shells out to the platform service manager, the way
// internal/sentry reloads sshd: run the command, report stderr on
// failure.
func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
