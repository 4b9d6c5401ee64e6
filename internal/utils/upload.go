package utils

import (
	"io"            // Stream copy
	"os"            // Filesystem operations
	"path/filepath" // Path joining

	"github.com/google/uuid" // Unique filenames
)

// SaveImageFile stores an uploaded image under uploads/<folder>/ and returns
// the public path for it. Object storage is an external collaborator; the
// local-disk layout keeps the same file-plus-folder-to-URL contract.
func SaveImageFile(file io.Reader, folder string, filename string) (string, error) {
	// Create the target directory if it doesn't exist
	dir := filepath.Join("uploads", folder)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	// Generate a collision-free filename preserving the extension
	newName := uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(dir, newName)
	// Save the file
	dest, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dest.Close()
	if _, err := io.Copy(dest, file); err != nil {
		return "", err
	}
	return "/" + path, nil // Public path served from the uploads dir
}
