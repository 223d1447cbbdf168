package service

import "errors"

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrGiveawayFinished = errors.New("giveaway is finished")
	ErrNotStarted       = errors.New("giveaway has not started yet")
	ErrAlreadyFinished  = errors.New("giveaway is already finished")
	ErrInvalidWindow    = errors.New("giveaway end must be after its start")
	ErrEmptyBroadcast   = errors.New("broadcast text is empty")
)
