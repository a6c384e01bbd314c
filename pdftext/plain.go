package pdftext

import "os"

// extractPlainFile reads a text or markdown fact sheet as-is.
func extractPlainFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
