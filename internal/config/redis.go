package config

import (
    "context"
    "crypto/tls"
    "log"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// Redis backs three optional features of the journal: the durable role
// cache consulted by the auth resolver, the response cache for the public
// feed and the vote/login rate limiter.  All three are advisory, so a
// missing or unreachable Redis is a logged degradation, never a startup
// failure: callers receive nil and switch their feature off.

// NewRedisClient connects using the environment and verifies the server is
// reachable.  Returns nil when it is not.
//
//	REDIS_ADDR       host:port (or REDIS_HOST + REDIS_PORT)
//	REDIS_PASSWORD   optional password
//	REDIS_DB         database number, default 0
//	REDIS_TLS        "true"/"1" enables TLS
func NewRedisClient() *redis.Client {
    client := redis.NewClient(redisOptions())

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Printf("redis: %s unreachable (%v)", client.Options().Addr, err)
        _ = client.Close()
        return nil
    }
    return client
}

func redisOptions() *redis.Options {
    opts := &redis.Options{
        Addr:     getenv("REDIS_ADDR", "localhost:6379"),
        Password: getenv("REDIS_PASSWORD", ""),
        DB:       atoi(getenv("REDIS_DB", "0")),
    }
    // Host/port pair wins over the combined address when both are set.
    if host, port := getenv("REDIS_HOST", ""), getenv("REDIS_PORT", ""); host != "" && port != "" {
        opts.Addr = host + ":" + port
    }
    if v := getenv("REDIS_TLS", ""); v == "1" || strings.EqualFold(v, "true") {
        opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
    }
    return opts
}
