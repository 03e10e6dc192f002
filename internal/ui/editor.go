package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/n0ko/message-feed/internal/config"
	"github.com/n0ko/message-feed/internal/ledger"
)

// EditorResultMsg is sent when the external editor completes
type EditorResultMsg struct {
	Content string
	Err     error
}

// EditorCancelledMsg is sent when the editor is closed with an empty buffer
type EditorCancelledMsg struct{}

var composeHint = fmt.Sprintf(`
# Write your message above. Lines starting with '#' are ignored
# and line breaks become spaces. Posts are limited to %d bytes.
# An empty message cancels.
`, ledger.MaxTextLength)

// draftFile is the temp file a message is composed in
type draftFile struct {
	path string
}

func newDraftFile(draft string) (*draftFile, error) {
	f, err := os.CreateTemp("", "message-feed-compose-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(draft + "\n" + composeHint); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write draft: %w", err)
	}
	return &draftFile{path: f.Name()}, nil
}

func (d *draftFile) read() (string, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return "", fmt.Errorf("failed to read draft: %w", err)
	}
	defer f.Close()
	return parseDraft(f)
}

func (d *draftFile) remove() {
	os.Remove(d.path)
}

// parseDraft drops comment lines and folds the rest into one line
func parseDraft(r io.Reader) (string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read draft: %w", err)
	}
	return strings.Join(words, " "), nil
}

// StartEditorCmd suspends the program while the configured editor runs on
// the draft and reports the composed text.
func StartEditorCmd(cfg *config.Config, draft string) tea.Cmd {
	df, err := newDraftFile(draft)
	if err != nil {
		return func() tea.Msg {
			return EditorResultMsg{Err: err}
		}
	}

	args := append(append([]string{}, cfg.EditorArgs...), df.path)
	return tea.ExecProcess(exec.Command(cfg.Editor, args...), func(err error) tea.Msg {
		defer df.remove()

		if err != nil {
			return EditorResultMsg{Err: fmt.Errorf("editor failed: %w", err)}
		}
		content, err := df.read()
		if err != nil {
			return EditorResultMsg{Err: err}
		}
		if content == "" {
			return EditorCancelledMsg{}
		}
		return EditorResultMsg{Content: content}
	})
}
