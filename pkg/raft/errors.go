package raft

import "errors"

var (
	ErrTimeout        = errors.New("operation timed out")
	ErrNodeNotFound   = errors.New("node not found")
	ErrSnapshotFailed = errors.New("snapshot operation failed")
	ErrNodeStopped    = errors.New("node has been stopped")
)
