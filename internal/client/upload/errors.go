package upload

import "errors"

var (
	ErrGroupWrite   = errors.New("group metadata write failed")
	ErrFileMissing  = errors.New("local file does not exist")
	ErrFileTooLarge = errors.New("file exceeds upload size limit")
	ErrLinkFailed   = errors.New("file group linking failed")
	ErrPanicked     = errors.New("file operation panicked")
)
