// Package clipboard copies explanation text to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/usertbera/enveye"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard: not supported on this system")

// Ensure both implementations satisfy the Clipboard interface.
var (
	_ enveye.Clipboard = (*System)(nil)
	_ enveye.Clipboard = (*Command)(nil)
)

// System implements Clipboard using the platform clipboard (pbcopy, xclip,
// xsel, wl-copy or the Windows API).
type System struct{}

// NewSystem returns a new System clipboard.
func NewSystem() *System {
	return &System{}
}

// Copy writes content to the system clipboard.
func (s *System) Copy(content string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(content)
}

// Command implements Clipboard by piping content into an external command,
// for setups the system clipboard does not detect (e.g. "tmux load-buffer -").
type Command struct {
	Name string
	Args []string
}

// NewCommand parses a command line such as "wl-copy --primary".
func NewCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("clipboard: empty command")
	}
	return &Command{Name: fields[0], Args: fields[1:]}, nil
}

// Copy writes content to the command's stdin.
func (c *Command) Copy(content string) error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Stdin = strings.NewReader(content)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("clipboard: %s: %w: %s", c.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
