package signoff

import (
	"testing"

	"aigitcommit/cli/internal/commitmsg"
	"aigitcommit/cli/internal/config"
)

func ptrBool(b bool) *bool { return &b }

func TestResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   Inputs
		want bool
	}{
		{"nothing set", Inputs{Policy: config.PolicyRepository}, false},
		{"toggle only", Inputs{Policy: config.PolicyRepository, Toggle: true}, true},
		{"repo on beats toggle off", Inputs{Policy: config.PolicyRepository, Repo: ptrBool(true), Toggle: false}, true},
		{"repo off beats toggle on", Inputs{Policy: config.PolicyRepository, Repo: ptrBool(false), Toggle: true}, false},
		{"empty policy behaves as repository", Inputs{Repo: ptrBool(false), Toggle: true}, false},
		{"environment policy ignores repo", Inputs{Policy: config.PolicyEnvironment, Repo: ptrBool(false), Toggle: true}, true},
		{"environment policy toggle off", Inputs{Policy: config.PolicyEnvironment, Repo: ptrBool(true)}, false},
		{"flag on beats repo off", Inputs{Policy: config.PolicyRepository, Repo: ptrBool(false), Flag: ptrBool(true)}, true},
		{"flag off beats repo and toggle", Inputs{Policy: config.PolicyRepository, Repo: ptrBool(true), Toggle: true, Flag: ptrBool(false)}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLine(t *testing.T) {
	t.Parallel()
	if got := Line(" Ada Lovelace ", "ada@example.com"); got != "Signed-off-by: Ada Lovelace <ada@example.com>" {
		t.Errorf("Line = %q", got)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()
	m := commitmsg.Message{Title: "fix: a", Body: []string{"b"}}
	got := Apply(m, "Ada", "ada@example.com")
	if got.Text() != "fix: a\n\n- b\n\nSigned-off-by: Ada <ada@example.com>" {
		t.Errorf("Text = %q", got.Text())
	}
	if m.Signoff != "" {
		t.Error("Apply modified its input")
	}
}
