package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// puppetChannel is the pub/sub channel a human-in-the-loop operator
// console subscribes to (spec.md §6 KV keys: "optional puppet:channel
// pub/sub").
const puppetChannel = "puppet:channel"

// RedisPuppetWaiter implements PuppetWaiter against Redis pub/sub plus
// a polled rendezvous key, adapted to the Kernel's puppet-mode
// protocol (spec.md §4.6 item 4, §6 "puppet:response:{run_id}:{agent_id}
// rendezvous key").
type RedisPuppetWaiter struct {
	client *redis.Client
	poll   time.Duration
}

// NewRedisPuppetWaiter returns a RedisPuppetWaiter. A zero poll
// interval defaults to 200ms.
func NewRedisPuppetWaiter(client *redis.Client, poll time.Duration) *RedisPuppetWaiter {
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	return &RedisPuppetWaiter{client: client, poll: poll}
}

type awaitingDecisionRecord struct {
	RunID   string `json:"run_id"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
}

func responseKey(runID, agentID string) string {
	return "puppet:response:" + runID + ":" + agentID
}

// AwaitDecision publishes an awaiting_decision record and polls the
// response key until it appears or timeout elapses.
func (p *RedisPuppetWaiter) AwaitDecision(ctx context.Context, runID, agentID string, timeout time.Duration) bool {
	record, err := json.Marshal(awaitingDecisionRecord{RunID: runID, AgentID: agentID, Status: "awaiting_decision"})
	if err == nil {
		_ = p.client.Publish(ctx, puppetChannel, record).Err()
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	key := responseKey(runID, agentID)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if n, err := p.client.Exists(ctx, key).Result(); err == nil && n > 0 {
				_ = p.client.Del(ctx, key).Err()
				return true
			}
		}
	}
	return false
}
