package paneinject

import (
	"os"

	"github.com/creack/pty"
)

// ptyProbe allocates a throwaway pseudo-terminal to confirm the
// current process can still open new ptys at all — a cheap sanity
// check the doctor command runs (not per-paste) to fail
// fast when running in an environment (e.g. a container with /dev/pts
// unmounted) where tmux panes can never be genuinely live, rather than
// attributing every later PaneDead to the target session itself.
func ptyProbe() error {
	master, slave, err := pty.Open()
	if err != nil {
		return err
	}
	defer closeAll(master, slave)
	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// ProbeEnvironment runs ptyProbe and returns its error, if any. Called
// once by the CLI's `doctor` command.
func ProbeEnvironment() error {
	return ptyProbe()
}
