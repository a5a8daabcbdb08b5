package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	timeFormat       = "2006-01-02 15:04:05"
	chatCourseKeyTpl = "chat:%d" // chat:${chatID}
	tokenPrefix      = "sk-semla-"
)

type TokenInfo struct {
	Instructor      string    `json:"instructor"`
	Token           string    `json:"token"`
	RequestCount    int       `json:"request_count"`
	CreatedTime     time.Time `json:"created_dttm_utc"`
	LastRequestTime time.Time `json:"last_request_dttm_utc"`
}

// TokenManager issues instructor API tokens and remembers which course a
// telegram chat works with. Tokens live in the hash validated by Auth.
type TokenManager struct {
	redis       *redis.Client
	keyTemplate string
	ttl         time.Duration
	now         func() time.Time
}

func NewTokenManager(redis *redis.Client, keyTemplate string, ttl time.Duration) *TokenManager {
	return &TokenManager{redis: redis, keyTemplate: keyTemplate, ttl: ttl, now: time.Now}
}

func (tm *TokenManager) key(instructor string) string {
	return strings.NewReplacer("{instructor}", instructor).Replace(tm.keyTemplate)
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

// FetchOrCreateToken returns the instructor's token, creating one when none
// exists. The bool reports whether the token is new.
func (tm *TokenManager) FetchOrCreateToken(ctx context.Context, instructor string) (*TokenInfo, bool, error) {
	key := tm.key(instructor)

	_, err := tm.redis.HGet(ctx, key, "token").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("failed to check token: %w", err)
	}

	now := tm.now().UTC()
	isNewToken := false

	if errors.Is(err, redis.Nil) {
		token, err := generateToken()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate token: %w", err)
		}

		pipe := tm.redis.Pipeline()
		pipe.HSet(ctx, key, map[string]interface{}{
			"token":                 token,
			"request_count":         0,
			"last_request_dttm_utc": now.Format(timeFormat),
			"created_dttm_utc":      now.Format(timeFormat),
		})
		if tm.ttl > 0 {
			pipe.Expire(ctx, key, tm.ttl)
		}

		if _, err := pipe.Exec(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to create token: %w", err)
		}

		isNewToken = true
	} else {
		if err := tm.redis.HSet(ctx, key, "last_request_dttm_utc", now.Format(timeFormat)).Err(); err != nil {
			return nil, false, fmt.Errorf("failed to update token stats: %w", err)
		}
	}

	values, err := tm.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get token info: %w", err)
	}

	lastReqTime, _ := time.Parse(timeFormat, values["last_request_dttm_utc"])
	createdTime, _ := time.Parse(timeFormat, values["created_dttm_utc"])
	reqCount, _ := strconv.Atoi(values["request_count"])

	return &TokenInfo{
		Instructor:      instructor,
		Token:           values["token"],
		RequestCount:    reqCount,
		LastRequestTime: lastReqTime,
		CreatedTime:     createdTime,
	}, isNewToken, nil
}

func (tm *TokenManager) RevokeToken(ctx context.Context, instructor string) error {
	return tm.redis.Del(ctx, tm.key(instructor)).Err()
}

// AssociateChatWithCourse sets the course bot commands use by default in a chat.
func (tm *TokenManager) AssociateChatWithCourse(ctx context.Context, chatID int64, course string, by int64) error {
	key := fmt.Sprintf(chatCourseKeyTpl, chatID)
	return tm.redis.HSet(ctx, key, map[string]interface{}{
		"course":              course,
		"associated_dttm_utc": tm.now().UTC().Format(timeFormat),
		"registered_by":       by,
	}).Err()
}

// FetchCourseByChatID returns "" when the chat has no course.
func (tm *TokenManager) FetchCourseByChatID(ctx context.Context, chatID int64) (string, error) {
	key := fmt.Sprintf(chatCourseKeyTpl, chatID)
	course, err := tm.redis.HGet(ctx, key, "course").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch course for chat %d: %w", chatID, err)
	}
	return course, nil
}

func (tm *TokenManager) Close() error {
	if tm.redis != nil {
		return tm.redis.Close()
	}
	return nil
}
