package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ParticipantLoginKey returns the cache key for a participant's login session
func (r *CacheKeyStruct) ParticipantLoginKey(participantID int) string {
	return fmt.Sprintf("login:%d", participantID)
}

// SessionStartKey returns the cache key for a participant's session start time
func (r *CacheKeyStruct) SessionStartKey(contestID string, participantID int) string {
	return fmt.Sprintf("participant:%d:contest:%s:session_start", participantID, contestID)
}

// SessionAnswersKey returns the cache key for a participant's live answer mirror
func (r *CacheKeyStruct) SessionAnswersKey(contestID string, participantID int) string {
	return fmt.Sprintf("participant:%d:contest:%s:answers", participantID, contestID)
}

// ContestPayloadKey returns the cache key for a contest's participant payload
func (r *CacheKeyStruct) ContestPayloadKey(contestID string) string {
	return fmt.Sprintf("contest:%s:payload", contestID)
}

// ContestDurationKey returns the cache key for a contest's duration
func (r *CacheKeyStruct) ContestDurationKey(contestID string) string {
	return fmt.Sprintf("contest:%s:duration", contestID)
}

// ContestAnswerKeyKey returns the cache key for a contest's answer key snapshot
func (r *CacheKeyStruct) ContestAnswerKeyKey(contestID string) string {
	return fmt.Sprintf("contest:%s:key", contestID)
}

// ContestMonitorChannel returns the Redis PubSub channel name for a contest monitor
func (r *CacheKeyStruct) ContestMonitorChannel(contestID string) string {
	return fmt.Sprintf("contest:%s:monitor", contestID)
}

var CacheKey = NewCacheKeyStruct()
