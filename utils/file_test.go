package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloud.xyz")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "1 2 3")
		return err
	})
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "1 2 3\n")
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Mode().Perm(), test.ShouldEqual, os.FileMode(0o644))

	failing := filepath.Join(dir, "partial.xyz")
	err = WriteFileAtomic(failing, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "4 5 6"); err != nil {
			return err
		}
		return errors.New("disk on fire")
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "disk on fire")
	_, err = os.Stat(failing)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 1)
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "cloud.xyz"), func(w io.Writer) error {
		return nil
	})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloud.las")

	var seenExt string
	err := RenameIntoPlace(path, func(tmpPath string) error {
		seenExt = filepath.Ext(tmpPath)
		return os.WriteFile(tmpPath, []byte("las"), 0o600)
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seenExt, test.ShouldEqual, ".las")
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "las")

	failing := filepath.Join(dir, "bad.las")
	err = RenameIntoPlace(failing, func(tmpPath string) error {
		if err := os.WriteFile(tmpPath, []byte("half"), 0o600); err != nil {
			return err
		}
		return errors.New("writer failed")
	})
	test.That(t, err, test.ShouldNotBeNil)
	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 1)
}
