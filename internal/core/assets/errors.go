package assets

import "errors"

var (
	ErrUnknownSession = errors.New("unknown world session")
	ErrEmptyPath      = errors.New("asset path is empty")
	ErrKindMismatch   = errors.New("asset path already requested with a different kind")
	ErrUnknownRef     = errors.New("unknown asset reference")
	ErrUnknownKind    = errors.New("unknown asset kind")
	ErrWaitTimeout    = errors.New("timed out waiting for world session assets")
	ErrAssetsFailed   = errors.New("world session assets failed to load")
	ErrUnknownHandle  = errors.New("unknown load handle")
	ErrLoaderClosed   = errors.New("loader is closed")
)
