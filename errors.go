package topicdisc

import (
	"errors"
)

var (
	ErrNoPeers       = errors.New("no peers in the local table")
	ErrUnreachable   = errors.New("node is unreachable")
	ErrTopicNotFound = errors.New("topic is not being advertised")
	ErrInvalidRecord = errors.New("invalid node record")
	ErrSelfRecord    = errors.New("record is the local node")
)

func IsErrNoPeers(err error) bool {
	return errors.Is(err, ErrNoPeers)
}

func IsErrUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

func IsErrTopicNotFound(err error) bool {
	return errors.Is(err, ErrTopicNotFound)
}

func IsErrInvalidRecord(err error) bool {
	return errors.Is(err, ErrInvalidRecord)
}

func IsErrSelfRecord(err error) bool {
	return errors.Is(err, ErrSelfRecord)
}
