package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"arbscreen/internal/arbitrage"
	"arbscreen/internal/opportunity"
)

// Publisher stores every scan under its id and moves the latest pointer.
//
// Key schema (prefix defaults to "arbscreen"):
//
//	{prefix}:scan:{id}:triangular     - list of JSON records, ranked
//	{prefix}:scan:{id}:cross_exchange - list of JSON records, ranked
//	{prefix}:scan:{id}:meta           - hash: started_at, duration_ms, evaluated, failures
//	{prefix}:latest                   - string: id of the newest scan
//	{prefix}:scans                    - pub/sub channel announcing new scan ids
type Publisher struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewPublisher(c *Client, prefix string, ttl time.Duration) *Publisher {
	if prefix == "" {
		prefix = "arbscreen"
	}
	return &Publisher{rdb: c.rdb, prefix: prefix, ttl: ttl}
}

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) scanKey(id, suffix string) string { return p.prefix + ":scan:" + id + ":" + suffix }
func (p *Publisher) latestKey() string                { return p.prefix + ":latest" }
func (p *Publisher) channel() string                  { return p.prefix + ":scans" }

// payload encodes ranked opportunities as list members in rank order.
func payload(opps []opportunity.Opportunity) ([]any, error) {
	out := make([]any, 0, len(opps))
	for _, o := range opps {
		b, err := json.Marshal(o.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}

func meta(res arbitrage.Result) map[string]any {
	return map[string]any{
		"started_at":  res.StartedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms": strconv.FormatInt(res.Duration.Milliseconds(), 10),
		"evaluated":   strconv.Itoa(res.Evaluated),
		"triangular":  strconv.Itoa(len(res.Triangular)),
		"cross":       strconv.Itoa(len(res.Cross)),
		"failures":    strconv.Itoa(len(res.Failures)),
	}
}

func (p *Publisher) Publish(ctx context.Context, res arbitrage.Result) error {
	tri, err := payload(res.Triangular)
	if err != nil {
		return err
	}
	cross, err := payload(res.Cross)
	if err != nil {
		return err
	}

	pipe := p.rdb.TxPipeline()
	for suffix, members := range map[string][]any{
		string(opportunity.Triangular):    tri,
		string(opportunity.CrossExchange): cross,
	} {
		if len(members) == 0 {
			continue
		}
		key := p.scanKey(res.ScanID, suffix)
		pipe.RPush(ctx, key, members...)
		if p.ttl > 0 {
			pipe.Expire(ctx, key, p.ttl)
		}
	}
	metaKey := p.scanKey(res.ScanID, "meta")
	pipe.HSet(ctx, metaKey, meta(res))
	if p.ttl > 0 {
		pipe.Expire(ctx, metaKey, p.ttl)
	}
	pipe.Set(ctx, p.latestKey(), res.ScanID, p.ttl)
	pipe.Publish(ctx, p.channel(), res.ScanID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish scan %s: %w", res.ScanID, err)
	}
	return nil
}
