package decode

import (
	"bytes"
	"os"
	"os/exec"
	"strings"

	"film-negative-converter/internal/raster"
)

// DefaultDcraw is the executable Dcraw runs when Command is empty.
const DefaultDcraw = "dcraw"

// dcrawArgs asks for linear 16-bit output with camera white balance and the
// camera colour matrix, no auto brightening, as TIFF on stdout.
var dcrawArgs = []string{"-4", "-w", "-T", "-c"}

// Dcraw decodes camera RAW files by running dcraw (or a compatible tool
// such as LibRaw's dcraw_emu) and reading its TIFF output.
type Dcraw struct {
	// Command is the decoder executable. Empty means DefaultDcraw.
	Command string
}

// Decode implements Decoder.
func (d Dcraw) Decode(path string) (*raster.RGB16, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Reason: "open", Err: err}
	}

	command := d.Command
	if command == "" {
		command = DefaultDcraw
	}

	args := append(append([]string(nil), dcrawArgs...), path)
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		reason := "run " + command
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			reason += " (" + msg + ")"
		}
		return nil, &DecodeError{Path: path, Reason: reason, Err: err}
	}
	if stdout.Len() == 0 {
		return nil, &DecodeError{Path: path, Reason: command + " produced no output"}
	}

	return decodeTIFF(path, &stdout)
}
