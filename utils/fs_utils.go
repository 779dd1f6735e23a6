package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CreateFile creates (or truncates) fileName within the directory path, creating the directory first if needed. An
// empty path creates the file in the working directory.
func CreateFile(path string, fileName string) (*os.File, error) {
	filePath := fileName
	if path != "" {
		if err := MakeDirectory(path); err != nil {
			return nil, err
		}
		filePath = filepath.Join(path, fileName)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// CopyFile copies a file from a source path to a destination path, keeping its permissions. Parent directories of
// the destination are created as needed.
func CopyFile(sourcePath string, targetPath string) error {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	if sourceInfo.IsDir() {
		return errors.Errorf("could not copy '%s' to '%s': the source is a directory", sourcePath, targetPath)
	}
	if err = os.MkdirAll(filepath.Dir(targetPath), 0777); err != nil {
		return errors.WithStack(err)
	}

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	targetFile, err := os.Create(targetPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer targetFile.Close()

	if _, err = io.Copy(targetFile, sourceFile); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Chmod(targetPath, sourceInfo.Mode()))
}

// MakeDirectory creates a directory at the given path, including any missing parents. An existing directory is not
// an error, an existing file of the same name is.
func MakeDirectory(dirToMake string) error {
	dirInfo, err := os.Stat(dirToMake)
	if os.IsNotExist(err) {
		return errors.WithStack(os.MkdirAll(dirToMake, 0777))
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if !dirInfo.IsDir() {
		return errors.Errorf("'%s' exists and is not a directory", dirToMake)
	}
	return nil
}

// CopyDirectory copies the files of a directory to a destination path. Subdirectories are only copied when
// recursively is set.
func CopyDirectory(sourcePath string, targetPath string, recursively bool) error {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !sourceInfo.IsDir() {
		return errors.Errorf("could not copy '%s' to '%s': the source is not a directory", sourcePath, targetPath)
	}
	if err = os.MkdirAll(targetPath, sourceInfo.Mode()); err != nil {
		return errors.WithStack(err)
	}

	dirEntries, err := os.ReadDir(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, dirEntry := range dirEntries {
		entSourcePath := filepath.Join(sourcePath, dirEntry.Name())
		entTargetPath := filepath.Join(targetPath, dirEntry.Name())

		if dirEntry.IsDir() {
			if recursively {
				if err = CopyDirectory(entSourcePath, entTargetPath, recursively); err != nil {
					return err
				}
			}
			continue
		}
		if err = CopyFile(entSourcePath, entTargetPath); err != nil {
			return err
		}
	}
	return nil
}
