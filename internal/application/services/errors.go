package services

import "errors"

var (
	ErrMetadataWriteFailed = errors.New("metadata write failed")
	ErrNotAnImage          = errors.New("only images can be used as a profile picture")
	ErrEmptyBatch          = errors.New("batch has no files")
	ErrBatchExists         = errors.New("batch id already in use")
	ErrBatchNotFound       = errors.New("batch not found")
	ErrBatchAborted        = errors.New("batch aborted")
)
