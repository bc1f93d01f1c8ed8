package sar

import "golang.org/x/xerrors"

// Fatal conditions that abort a create/extract/list run immediately,
// matching the err(3)/errx(3) exits of the format's reference reader.
var (
	ErrBadMagic      = xerrors.New("incompatible magic number")
	ErrPathTooLong   = xerrors.New("path too long")
	ErrNodeTooLong   = xerrors.New("node max size exceeded")
	ErrLinkTooLarge  = xerrors.New("link size too large")
	ErrWorkingPath   = xerrors.New("maximum size exceeded for working path")
	ErrCreateOnly    = xerrors.New("options 'CN' are only available with create mode")
)
