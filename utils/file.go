package utils

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ResolveFile returns fn, given relative to the repository root, as an absolute path. Tests use
// it to find checked in data such as calibration/data/azure_kinect.json.
func ResolveFile(fn string) string {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate utils/file.go")
	}
	root, err := filepath.Abs(filepath.Join(filepath.Dir(self), ".."))
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, fn)
}

// RemoveFileNoError removes path, ignoring a missing file or any other error.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
}

// WriteFileAtomic writes a file through a temporary sibling that is renamed onto path only when
// write returns nil and every byte reached the disk. On any failure the temporary file is removed
// and path is left untouched. The file is created with mode 0644.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpName)
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return multierr.Combine(err, tmp.Close())
	}

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err = bw.Flush(); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return errors.Wrapf(os.Rename(tmpName, path), "cannot move %q into place", path)
}

// RenameIntoPlace is WriteFileAtomic for writers that insist on opening the destination
// themselves: write receives a temporary path next to path and must fully create it.
func RenameIntoPlace(path string, write func(tmpPath string) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Close(); err != nil {
		RemoveFileNoError(tmpName)
		return err
	}
	// keep the real extension so extension-sniffing writers behave
	tmpPath := tmpName + filepath.Ext(path)
	RemoveFileNoError(tmpName)
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpPath)
		}
	}()
	if err = write(tmpPath); err != nil {
		return err
	}
	return errors.Wrapf(os.Rename(tmpPath, path), "cannot move %q into place", path)
}
