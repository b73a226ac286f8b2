package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRemotePath(t *testing.T) {
	tests := []struct {
		name          string
		localFile     string
		rootName      string
		targetRoot    string
		expRemoteDir  string
		expRemoteFile string
	}{
		{
			name:          "Nested file",
			localFile:     "/a/root/sub/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest/sub",
			expRemoteFile: "/Dest/sub/file.txt",
		},
		{
			name:          "File directly in root",
			localFile:     "/a/root/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest",
			expRemoteFile: "/Dest/file.txt",
		},
		{
			name:          "Deeply nested file",
			localFile:     "/a/root/b/c/d/file.txt",
			rootName:      "root",
			targetRoot:    "Dest",
			expRemoteDir:  "Dest/b/c/d",
			expRemoteFile: "Dest/b/c/d/file.txt",
		},
		{
			// Only whole path segments match the root name.
			name:          "Root name is a substring of another directory",
			localFile:     "/home/rootuser/root/sub/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest/sub",
			expRemoteFile: "/Dest/sub/file.txt",
		},
		{
			// The first matching segment wins, even if it's a parent of the
			// real source root.
			name:          "Parent directory shares the root name",
			localFile:     "/root/projects/root/sub/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest/projects/root/sub",
			expRemoteFile: "/Dest/projects/root/sub/file.txt",
		},
		{
			// A subdirectory with the root's name doesn't confuse the match,
			// since the root itself comes first.
			name:          "Subdirectory shares the root name",
			localFile:     "/a/root/root/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest/root",
			expRemoteFile: "/Dest/root/file.txt",
		},
		{
			name:          "Root name not in path",
			localFile:     "/a/other/sub/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest",
			expRemoteFile: "/Dest/file.txt",
		},
		{
			name:          "Trailing slash on target",
			localFile:     "/a/root/sub/file.txt",
			rootName:      "root",
			targetRoot:    "/Dest/",
			expRemoteDir:  "/Dest/sub",
			expRemoteFile: "/Dest/sub/file.txt",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			remoteDir, remoteFile := MapRemotePath(test.localFile, test.rootName, test.targetRoot)
			assert.Equal(t, test.expRemoteDir, remoteDir)
			assert.Equal(t, test.expRemoteFile, remoteFile)
		})
	}
}

func TestMapRemotePathSeparators(t *testing.T) {
	defer func(sep rune) { localSeparator = sep }(localSeparator)

	tests := []struct {
		name          string
		separator     rune
		localFile     string
		targetRoot    string
		expRemoteDir  string
		expRemoteFile string
	}{
		{
			name:          "Windows host",
			separator:     '\\',
			localFile:     `C:\Users\me\root\sub\file.txt`,
			targetRoot:    `\Dest\Files`,
			expRemoteDir:  "/Dest/Files/sub",
			expRemoteFile: "/Dest/Files/sub/file.txt",
		},
		{
			name:          "Windows host with forward slashes",
			separator:     '\\',
			localFile:     `C:/Users/me/root/sub\file.txt`,
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest/sub",
			expRemoteFile: "/Dest/sub/file.txt",
		},
		{
			name:          "Backslash in a Unix file name",
			separator:     '/',
			localFile:     `/a/root/sub/weird\name.txt`,
			targetRoot:    "/Dest",
			expRemoteDir:  "/Dest/sub",
			expRemoteFile: `/Dest/sub/weird\name.txt`,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			localSeparator = test.separator
			remoteDir, remoteFile := MapRemotePath(test.localFile, "root", test.targetRoot)
			assert.Equal(t, test.expRemoteDir, remoteDir)
			assert.Equal(t, test.expRemoteFile, remoteFile)
		})
	}
}
