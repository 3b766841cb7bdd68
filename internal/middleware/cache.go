package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/referral-service/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}
func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size < cw.limit {
        remain := cw.limit - cw.size
        if cw.limit <= 0 {
            cw.buf.Write(b)
        } else if remain > 0 {
            if int64(len(b)) <= remain {
                cw.buf.Write(b)
            } else {
                cw.buf.Write(b[:remain])
            }
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    total := 4 + 4 + len(hdrJSON) + len(body)
    out := make([]byte, total)
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    var hdr http.Header
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    } else {
        hdr = make(http.Header)
    }
    body = bs[8+hlen:]
    return status, hdr, body, true
}

// ResponseCache stores successful responses in Redis keyed by method and
// URL path.  A nil client or a disabled config turns it into a no-op.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
    if cfg.TTL <= 0 {
        cfg.TTL = 5 * time.Minute
    }
    return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// Key returns the Redis key for method and path.  The query string is not
// part of the key; cached routes must not vary on it.
func (rc *ResponseCache) Key(method, path string) string {
    sum := sha1.Sum([]byte(strings.ToUpper(method) + " " + path))
    return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

// invalidatedKey marks when key was last invalidated.  A miss that started
// before that moment must not store its (possibly stale) body.
func invalidatedKey(key string) string { return key + ":inv" }

// Invalidate drops every cached method variant of path and records the
// invalidation time so in-flight misses do not repopulate it.
func (rc *ResponseCache) Invalidate(ctx context.Context, path string) error {
    if !rc.enabled() {
        return nil
    }
    now := time.Now().UnixNano()
    _, err := rc.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        for m := range rc.cfg.Methods {
            key := rc.Key(m, path)
            pipe.Del(ctx, key)
            pipe.Set(ctx, invalidatedKey(key), now, rc.cfg.TTL)
        }
        return nil
    })
    return err
}

// store writes payload under key unless key was invalidated at or after
// started.  WATCH aborts the write if an invalidation lands in between.
func (rc *ResponseCache) store(ctx context.Context, key string, started int64, payload []byte) {
    inv := invalidatedKey(key)
    _ = rc.rdb.Watch(ctx, func(tx *redis.Tx) error {
        at, err := tx.Get(ctx, inv).Int64()
        if err != nil && err != redis.Nil {
            return err
        }
        if err == nil && at >= started {
            return nil
        }
        _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
            pipe.Set(ctx, key, payload, rc.cfg.TTL)
            return nil
        })
        return err
    }, inv)
}

// Middleware stores headers + body so clients see identical formatting as
// the original response.  Only 200 responses are cached.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    maxBody := int64(rc.cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key := rc.Key(c.Request().Method, c.Request().URL.Path)

            if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        // Echo sets Content-Length; the request id belongs to this request
                        if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, RequestIDHeader) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            // Miss: capture
            started := time.Now().UnixNano()
            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            // truncated bodies are never cached
            if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
                hdr := c.Response().Header().Clone()
                if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                    rc.store(context.WithoutCancel(ctx), key, started, payload)
                }
            }
            return nil
        }
    }
}
