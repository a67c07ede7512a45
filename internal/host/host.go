// Package host wraps the operating-system capabilities the session needs:
// picking a file and opening one in its default application.
package host

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/starford/quicknote/internal/apperr"
)

// FileDialog asks the user to pick a notes file.
type FileDialog interface {
	// PickFile returns ok=false when the user dismisses the dialog.
	PickFile(ctx context.Context) (path string, ok bool, err error)
}

// ExternalOpener hands a path to the desktop's default handler.
type ExternalOpener interface {
	Open(ctx context.Context, path string) error
}

// DialogFunc adapts a function to FileDialog.
type DialogFunc func(ctx context.Context) (string, bool, error)

// PickFile calls f.
func (f DialogFunc) PickFile(ctx context.Context) (string, bool, error) { return f(ctx) }

// OpenerFunc adapts a function to ExternalOpener.
type OpenerFunc func(ctx context.Context, path string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, path string) error { return f(ctx, path) }

// commandFunc builds the command for one platform. Swapped in tests.
type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ExecOpener opens files with xdg-open, open or the Windows shell.
type ExecOpener struct {
	goos    string
	command commandFunc
}

// NewExecOpener returns an ExecOpener for the running platform.
func NewExecOpener() *ExecOpener {
	return &ExecOpener{goos: runtime.GOOS, command: exec.CommandContext}
}

// Open implements ExternalOpener.
func (o *ExecOpener) Open(ctx context.Context, path string) error {
	name, args := openCommand(o.goos, path)
	if err := o.command(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("host: open %s: %w: %w", path, apperr.ErrOpenFile, err)
	}
	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

// ExecDialog shows a native file picker restricted to .txt files.
type ExecDialog struct {
	goos     string
	command  commandFunc
	lookPath func(string) (string, error)
}

// NewExecDialog returns an ExecDialog for the running platform.
func NewExecDialog() *ExecDialog {
	return &ExecDialog{goos: runtime.GOOS, command: exec.CommandContext, lookPath: exec.LookPath}
}

// PickFile implements FileDialog.
func (d *ExecDialog) PickFile(ctx context.Context) (string, bool, error) {
	name, args, err := d.dialogCommand()
	if err != nil {
		return "", false, err
	}
	out, err := d.command(ctx, name, args...).Output()
	if err != nil {
		// Every supported picker exits 1 when the user cancels.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("host: %s: %w: %w", name, apperr.ErrDialog, err)
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", false, nil
	}
	return path, true, nil
}

func (d *ExecDialog) dialogCommand() (string, []string, error) {
	switch d.goos {
	case "darwin":
		return "osascript", []string{"-e",
			`POSIX path of (choose file with prompt "Select your notes .txt file" of type {"txt"})`}, nil
	case "windows":
		return "powershell", []string{"-NoProfile", "-Command",
			`Add-Type -AssemblyName System.Windows.Forms;` +
				`$d = New-Object System.Windows.Forms.OpenFileDialog;` +
				`$d.Filter = 'Text Files (*.txt)|*.txt';` +
				`if ($d.ShowDialog() -eq 'OK') { $d.FileName } else { exit 1 }`}, nil
	}
	if _, err := d.lookPath("zenity"); err == nil {
		return "zenity", []string{"--file-selection", "--title=Select your notes .txt file",
			"--file-filter=Text Files | *.txt"}, nil
	}
	if _, err := d.lookPath("kdialog"); err == nil {
		return "kdialog", []string{"--getopenfilename", ".", "*.txt"}, nil
	}
	return "", nil, fmt.Errorf("host: no file dialog available (install zenity or kdialog): %w", apperr.ErrDialog)
}
