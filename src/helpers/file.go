package helpers

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ReadDataFile reads a whole model file into memory. Parsing is
// whole-input; there is no streaming contract.
func ReadDataFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading data file %s: %w", filePath, err)
	}
	return data, nil
}

// WriteDataFile writes serialized model output, replacing any
// existing file at the path.
func WriteDataFile(filePath string, data []byte) error {
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing data file %s: %w", filePath, err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false // File does not exist
		}

		logger.Infof("Error checking file %s for existence: %s\n", filename, err)
		return false // Some other error occurred
	}

	return !info.IsDir() // Return true if it's not a directory
}
