package git

import (
	"os"
	"runtime"
)

// minimalEnv is the environment for git subprocesses: no prompts, no pager,
// and HOME so global config (user.name, diff settings) still resolves.
func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat", // prevent pager; subprocess output is captured
		"LC_ALL=C",      // stable "Binary files ... differ" and error text
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}

// MinimalEnv returns the environment used for git subprocesses. Exported for tests
// so callers can assert HOME is included when set.
func MinimalEnv() []string {
	return minimalEnv()
}
