// Package signoff decides whether a Signed-off-by trailer is added and renders it.
package signoff

import (
	"fmt"
	"strings"

	"aigitcommit/cli/internal/commitmsg"
	"aigitcommit/cli/internal/config"
)

// Inputs are the sign-off sources for one run.
type Inputs struct {
	// Policy is config.PolicyRepository or config.PolicyEnvironment.
	Policy string
	// Repo is the repository's aigitcommit.signoff value; nil when unset.
	Repo *bool
	// Toggle is the environment/global config setting.
	Toggle bool
	// Flag is an explicit --signoff/--no-signoff; nil when not given.
	Flag *bool
}

// Resolve applies the precedence: explicit flag, then the repository setting
// when the policy allows it, then the toggle.
func Resolve(in Inputs) bool {
	if in.Flag != nil {
		return *in.Flag
	}
	if in.Policy != config.PolicyEnvironment && in.Repo != nil {
		return *in.Repo
	}
	return in.Toggle
}

// Line renders the trailer for an identity.
func Line(name, email string) string {
	return fmt.Sprintf("Signed-off-by: %s <%s>", strings.TrimSpace(name), strings.TrimSpace(email))
}

// Apply returns m with its Signoff set to the trailer for name and email.
func Apply(m commitmsg.Message, name, email string) commitmsg.Message {
	m.Signoff = Line(name, email)
	return m
}
