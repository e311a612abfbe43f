// Package cubemx finds the STM32CubeMX project file that generated a
// workspace's Makefile.
package cubemx

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// Locator reports the project-generator file for a workspace. found is false
// when no single candidate exists; that is not an error.
type Locator interface {
	Find(root string) (path string, found bool, err error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(root string) (string, bool, error)

// Find implements Locator.
func (f LocatorFunc) Find(root string) (string, bool, error) {
	return f(root)
}

// Default is the Locator used by the engine.
var Default Locator = LocatorFunc(Find)

// Find returns the absolute, forward-slash path of the only *.ioc file in
// root. Zero or several candidates report found=false.
func Find(root string) (string, bool, error) {
	matches, err := Candidates(root)
	if err != nil {
		return "", false, err
	}
	if len(matches) != 1 {
		return "", false, nil
	}

	abs, err := filepath.Abs(matches[0])
	if err != nil {
		return "", false, errors.WrapIO("resolve", matches[0], err)
	}
	return filepath.ToSlash(abs), true, nil
}

// Candidates lists the *.ioc files directly inside root, sorted.
func Candidates(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.WrapIO("read", root, err)
	}

	var files []string
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name()), constants.CubeMxProjectExt) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
