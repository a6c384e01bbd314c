package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// runPdftotext invokes the external text-extraction tool as
// `<bin> -raw <path> -` and returns its stdout, lossily decoded as UTF-8.
func runPdftotext(ctx context.Context, bin, path string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, "-raw", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not found, install poppler-utils: %w", bin, err)
		}
		return "", fmt.Errorf("%s %s: %w (%s)", bin, path, err, strings.TrimSpace(stderr.String()))
	}

	return strings.ToValidUTF8(stdout.String(), ""), nil
}
