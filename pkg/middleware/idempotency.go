package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/pkg/logger"
	"github.com/prohmpiriya/wedding-market/pkg/redis"
	"github.com/prohmpiriya/wedding-market/pkg/response"
)

const (
	IdempotencyKeyHeader = "X-Idempotency-Key"
	IdempotencyKeyPrefix = "idempotency:"

	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultProcessingTTL  = 30 * time.Second
)

type idempotencyStatus string

const (
	statusProcessing idempotencyStatus = "processing"
	statusCompleted  idempotencyStatus = "completed"
)

type idempotencyRecord struct {
	Status       idempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// IdempotencyStore is the subset of Redis commands the middleware needs
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// IdempotencyConfig configures the idempotency middleware
type IdempotencyConfig struct {
	Store         IdempotencyStore
	TTL           time.Duration
	ProcessingTTL time.Duration
	// RequireKey rejects requests without the header; otherwise they pass through
	RequireKey bool
}

// Idempotency replays the stored response for a repeated X-Idempotency-Key.
// Only 2xx responses are stored; failures release the key so the client can retry.
func Idempotency(cfg *IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultIdempotencyTTL
	}
	if cfg.ProcessingTTL == 0 {
		cfg.ProcessingTTL = DefaultProcessingTTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if cfg.RequireKey {
				c.AbortWithStatusJSON(http.StatusBadRequest, response.BadRequest("X-Idempotency-Key header is required"))
				return
			}
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		userID, _ := GetUserID(c)
		hash := requestHash(c.Request.Method, c.Request.URL.Path, userID, body)
		redisKey := IdempotencyKeyPrefix + key
		ctx := c.Request.Context()

		record := idempotencyRecord{Status: statusProcessing, RequestHash: hash, CreatedAt: time.Now()}
		data, _ := json.Marshal(record)

		acquired, err := cfg.Store.SetNX(ctx, redisKey, data, cfg.ProcessingTTL).Result()
		if err != nil {
			// fail open
			logger.Get().Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !acquired {
			replayOrReject(c, cfg.Store, redisKey, hash)
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			cfg.Store.Del(context.WithoutCancel(ctx), redisKey)
			return
		}

		record.Status = statusCompleted
		record.ResponseCode = status
		record.ResponseBody = rw.body.String()
		data, _ = json.Marshal(record)
		if err := cfg.Store.Set(context.WithoutCancel(ctx), redisKey, data, cfg.TTL).Err(); err != nil {
			logger.Get().Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func replayOrReject(c *gin.Context, store IdempotencyStore, redisKey, hash string) {
	raw, err := store.Get(c.Request.Context(), redisKey).Bytes()
	if err != nil {
		if redis.IsNil(err) {
			// released between SETNX and GET
			c.AbortWithStatusJSON(http.StatusConflict, response.Conflict("request with this idempotency key was retried concurrently"))
			return
		}
		c.Next()
		return
	}

	var existing idempotencyRecord
	if err := json.Unmarshal(raw, &existing); err != nil {
		c.Next()
		return
	}

	switch {
	case existing.RequestHash != hash:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
			response.Error("IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request"))
	case existing.Status == statusProcessing:
		c.AbortWithStatusJSON(http.StatusConflict,
			response.Error("REQUEST_IN_PROGRESS", "a request with this idempotency key is already being processed"))
	default:
		c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
		c.Abort()
	}
}

func requestHash(method, path, userID string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write([]byte(userID))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
