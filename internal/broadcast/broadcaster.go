package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hashmato/pos/internal/config"
	"github.com/hashmato/pos/internal/dto"
	"github.com/hashmato/pos/internal/entity"
	queuerepo "github.com/hashmato/pos/internal/repository/queue"
)

// Broadcaster reads current queue state and publishes it to every live
// subscriber. It is strictly best-effort: any failure is logged and swallowed,
// and the next trigger re-synchronizes viewers. Clients can always re-fetch
// the full queue through GET /queue.
type Broadcaster struct {
	hub     *Hub
	repo    *queuerepo.Repository
	logger  *zap.Logger
	timeout time.Duration
}

// Params defines dependencies for constructing Broadcaster.
type Params struct {
	fx.In

	Hub        *Hub
	Repository *queuerepo.Repository
	Config     config.Config
	Logger     *zap.Logger
}

// NewBroadcaster wires a snapshot broadcaster.
func NewBroadcaster(p Params) *Broadcaster {
	return &Broadcaster{
		hub:     p.Hub,
		repo:    p.Repository,
		logger:  p.Logger,
		timeout: p.Config.Broadcast.PublishTimeout,
	}
}

// PublishSnapshot reads all queue tokens in arrival order, serializes them as
// one message, and hands it to the hub. Concurrent invocations are safe: each
// performs its own read, so every snapshot is internally consistent as of its
// own read.
func (b *Broadcaster) PublishSnapshot(ctx context.Context) {
	tokens, err := b.repo.List(ctx)
	if err != nil {
		b.logger.Warn("queue snapshot read failed", zap.Error(err))
		return
	}

	payload, err := json.Marshal(toTokenDTOs(tokens))
	if err != nil {
		b.logger.Warn("queue snapshot encode failed", zap.Error(err))
		return
	}

	b.hub.Publish(payload)
}

// Schedule triggers an asynchronous snapshot publish, decoupled from the
// caller. Mutation paths call this after commit so the HTTP response never
// waits on broadcast delivery.
func (b *Broadcaster) Schedule() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		b.PublishSnapshot(ctx)
	}()
}

func toTokenDTOs(tokens []entity.QueueToken) []dto.QueueTokenResponse {
	out := make([]dto.QueueTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, dto.QueueTokenResponse{
			ID:          t.ID,
			OrderID:     t.OrderID,
			TokenNumber: t.TokenNumber,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}
