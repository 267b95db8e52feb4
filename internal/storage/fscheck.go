package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// remoteMounts are filesystem names whose byte-range locks SQLite cannot
// trust. Linux magic numbers are translated to these names first.
var remoteMounts = map[string]bool{
	"afpfs":  true,
	"cifs":   true,
	"nfs":    true,
	"smbfs":  true,
	"smb2":   true,
	"webdav": true,
}

// RemoteMountError reports a state path on a network filesystem.
type RemoteMountError struct {
	Path   string
	FSType string
}

func (e *RemoteMountError) Error() string {
	return fmt.Sprintf("%s is on network filesystem %s; SQLite locking is unreliable there, move state.path to local disk", e.Path, e.FSType)
}

// CheckLocalDisk inspects the deepest existing ancestor of path and returns
// a *RemoteMountError when it sits on a network mount.
func CheckLocalDisk(path string) error {
	return checkLocalDisk(path, fsTypeOf)
}

func checkLocalDisk(path string, detect func(string) (string, error)) error {
	if path == "" {
		return errors.New("path is empty")
	}
	existing, err := deepestExisting(path)
	if err != nil {
		return err
	}
	fsType, err := detect(existing)
	if err != nil {
		return fmt.Errorf("detect filesystem of %s: %w", existing, err)
	}
	if remoteMounts[strings.ToLower(strings.TrimSpace(fsType))] {
		return &RemoteMountError{Path: path, FSType: fsType}
	}
	return nil
}

// deepestExisting walks up from path until it finds something that exists,
// so a database that has not been created yet is judged by its directory.
func deepestExisting(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("%s: no existing ancestor", path)
		}
		p = parent
	}
}
