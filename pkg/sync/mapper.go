package sync

import (
	"path"
	"path/filepath"
	"strings"
)

// MapRemotePath computes where localFile should be copied to on the device.
// The part of localFile's directory that follows sourceRootName is recreated
// under targetRoot. Remote paths always use forward slashes.
//
// For example, `/a/root/sub/file.txt` with root `root` and target `/Dest`
// maps to `/Dest/sub` and `/Dest/sub/file.txt`.
//
// The source root is found by the first path segment that's equal to
// sourceRootName. If a parent of the source root has the same name, the
// parent matches instead. If no segment matches, the file is placed directly
// in targetRoot.
func MapRemotePath(localFile, sourceRootName, targetRoot string) (remoteDir, remoteFile string) {
	segments := splitPath(localFile)
	if len(segments) == 0 {
		return toSlash(targetRoot), toSlash(targetRoot)
	}

	name := segments[len(segments)-1]
	dirs := segments[:len(segments)-1]

	var relative []string
	for i, segment := range dirs {
		if segment == sourceRootName {
			relative = dirs[i+1:]
			break
		}
	}

	remoteDir = path.Join(append([]string{toSlash(targetRoot)}, relative...)...)
	remoteFile = path.Join(remoteDir, name)
	return remoteDir, remoteFile
}

// Mocked for unit testing.
var localSeparator = filepath.Separator

// splitPath splits a local path on forward slashes and the host's separator.
// On Unix, a backslash is part of the file name.
func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == localSeparator
	})
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
