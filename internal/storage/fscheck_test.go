package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectReturning(fsType string, seen *string) func(string) (string, error) {
	return func(p string) (string, error) {
		if seen != nil {
			*seen = p
		}
		return fsType, nil
	}
}

func TestCheckLocalDisk(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		fsType string
		remote bool
	}{
		{"apfs", false},
		{"0xef53", false},
		{"0x6969", false},
		{"nfs", true},
		{"SMBFS", true},
		{" cifs ", true},
	} {
		dbPath := filepath.Join(t.TempDir(), "state.db")
		err := checkLocalDisk(dbPath, detectReturning(tc.fsType, nil))
		if !tc.remote {
			assert.NoError(t, err, tc.fsType)
			continue
		}
		var remote *RemoteMountError
		require.True(t, errors.As(err, &remote), tc.fsType)
		assert.Equal(t, dbPath, remote.Path)
		assert.Contains(t, err.Error(), "state.path")
	}
}

func TestCheckLocalDiskProbesDeepestExistingDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var seen string
	err := checkLocalDisk(filepath.Join(root, "a", "b", "state.db"), detectReturning("ext4", &seen))

	require.NoError(t, err)
	assert.Equal(t, root, seen)
}

func TestCheckLocalDiskProbeFailure(t *testing.T) {
	t.Parallel()

	err := checkLocalDisk(t.TempDir(), func(string) (string, error) { return "", errors.New("boom") })
	assert.ErrorContains(t, err, "boom")
	assert.Error(t, checkLocalDisk("", detectReturning("ext4", nil)))
}
