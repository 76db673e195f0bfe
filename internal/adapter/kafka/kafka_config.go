package kafka

import (
	"errors"
	"time"

	"github.com/IBM/sarama"
)

// NewGroup builds the consumer group for payment-gateway status events.
// Offsets start from the oldest message: a status change published while
// this service was down must still be applied after restart, and the
// guarded transition makes reprocessing harmless.
func NewGroup(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRoundRobin(),
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Interval = time.Second
	cfg.Net.DialTimeout = 5 * time.Second
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}
