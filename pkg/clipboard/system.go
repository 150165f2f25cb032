package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable indicates no system clipboard tool was found.
var ErrUnavailable = errors.New("clipboard: no clipboard tool available")

// tool is one read command and one write command for a platform
// clipboard utility.
type tool struct {
	copyCmd  []string
	pasteCmd []string
}

// System returns a ReadWriter backed by the platform clipboard
// utility: pbcopy/pbpaste on macOS, xclip or xsel on X11.
func System() (ReadWriter, error) {
	var candidates []tool
	switch runtime.GOOS {
	case "darwin":
		candidates = []tool{{
			copyCmd:  []string{"pbcopy"},
			pasteCmd: []string{"pbpaste"},
		}}
	default:
		candidates = []tool{
			{
				copyCmd:  []string{"xclip", "-selection", "clipboard"},
				pasteCmd: []string{"xclip", "-selection", "clipboard", "-o"},
			},
			{
				copyCmd:  []string{"xsel", "--clipboard", "--input"},
				pasteCmd: []string{"xsel", "--clipboard", "--output"},
			},
		}
	}

	for _, c := range candidates {
		if _, err := exec.LookPath(c.copyCmd[0]); err == nil {
			return &systemClipboard{tool: c}, nil
		}
	}
	return nil, ErrUnavailable
}

type systemClipboard struct {
	tool tool
}

func (s *systemClipboard) WriteText(text string) error {
	cmd := exec.Command(s.tool.copyCmd[0], s.tool.copyCmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard: write failed: %w", err)
	}
	return nil
}

func (s *systemClipboard) ReadText() (string, error) {
	out, err := exec.Command(s.tool.pasteCmd[0], s.tool.pasteCmd[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("clipboard: read failed: %w", err)
	}
	return string(out), nil
}
