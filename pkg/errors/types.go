package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// DirectoryNotFound is returned when the source directory of a sync doesn't
// exist. The sync is aborted before it touches the device.
type DirectoryNotFound struct {
	Path string
}

func (err DirectoryNotFound) Error() string {
	return fmt.Sprintf("source directory %q does not exist", err.Path)
}

// FriendlyMessage implements FriendlyError.
func (err DirectoryNotFound) FriendlyMessage() string {
	return fmt.Sprintf("Source Directory Does not exist. "+
		"Please enter a valid directory: %s", err.Path)
}

// ChannelEstablishError is returned when the application sandbox on a device
// can't be opened.
type ChannelEstablishError struct {
	Device        string
	AppIdentifier string
	Err           error
}

func (err ChannelEstablishError) Error() string {
	return fmt.Sprintf("connect to %q on device %s: %s",
		err.AppIdentifier, err.Device, err.Err)
}

func (err ChannelEstablishError) Unwrap() error {
	return err.Err
}

// RemoteDirectoryCreateError is a non-fatal error reported when a directory
// couldn't be created on the device.
type RemoteDirectoryCreateError struct {
	Path string
}

func (err RemoteDirectoryCreateError) Error() string {
	return fmt.Sprintf("Create directory failed: %s", err.Path)
}

// CopyFileError is a non-fatal error reported when a single file failed to
// copy.
type CopyFileError struct {
	Local, Remote string
	Err           error
}

func (err CopyFileError) Error() string {
	return fmt.Sprintf("copy %s to %s: %s", err.Local, err.Remote, err.Err)
}

func (err CopyFileError) Unwrap() error {
	return err.Err
}
