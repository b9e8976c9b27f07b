package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// 세션 상태 채널 접두어
const channelPrefix = "fusion:session:"

// SessionChannel - 세션 상태 채널명
func SessionChannel(sessionID string) string {
	return channelPrefix + sessionID
}

// SessionIDFromChannel - 채널명에서 세션 ID 추출
func SessionIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, channelPrefix)
	return id, id != ""
}

// StatusRelay - 세션 스냅샷을 Redis pub/sub 로 인스턴스 간 전달
type StatusRelay struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

// NewStatusRelay - relay 생성
func NewStatusRelay(client redis.UniversalClient, log zerolog.Logger) *StatusRelay {
	return &StatusRelay{
		client: client,
		log:    log.With().Str("component", "status_relay").Logger(),
	}
}

// Publish - 세션 채널에 payload 발행
func (r *StatusRelay) Publish(ctx context.Context, sessionID string, payload []byte) error {
	return r.client.Publish(ctx, SessionChannel(sessionID), payload).Err()
}

// Subscribe - 모든 세션 채널 구독, ctx 종료까지 handler 호출
func (r *StatusRelay) Subscribe(ctx context.Context, handler func(sessionID string, payload []byte)) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// 구독 확인
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info().Str("pattern", channelPrefix+"*").Msg("📡 Subscribed to session status channels")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			id, valid := SessionIDFromChannel(msg.Channel)
			if !valid {
				r.log.Warn().Str("channel", msg.Channel).Msg("⚠️  Ignoring message on unexpected channel")
				continue
			}
			handler(id, []byte(msg.Payload))
		}
	}
}
