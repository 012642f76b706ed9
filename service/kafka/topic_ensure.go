package kafka

import (
	"errors"

	errs "FeedNotify/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// EnsureTopics creates missing topics with c.Partitions and
// c.ReplicationFactor. Existing topics are left as they are.
func EnsureTopics(c Config, topics []string, log *zap.Logger) error {
	admin, err := sarama.NewClusterAdmin(c.Brokers, BuildSaramaConfig(c))
	if err != nil {
		return errs.ErrInternal.WrapErr(err, "kafka admin")
	}
	defer admin.Close()
	return ensureTopics(admin, c, topics, log)
}

func ensureTopics(admin sarama.ClusterAdmin, c Config, topics []string, log *zap.Logger) error {
	partitions := c.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	rf := c.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}
	for _, t := range topics {
		desc, err := admin.DescribeTopics([]string{t})
		if err == nil && len(desc) == 1 && desc[0].Err == sarama.ErrNoError {
			log.Debug("topic exists", zap.String("topic", t), zap.Int("partitions", len(desc[0].Partitions)))
			continue
		}
		td := &sarama.TopicDetail{
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			ConfigEntries: map[string]*string{
				"cleanup.policy": strPtr("delete"),
			},
		}
		if err := admin.CreateTopic(t, td, false); err != nil {
			var te *sarama.TopicError
			if errors.Is(err, sarama.ErrTopicAlreadyExists) || (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) {
				continue
			}
			return errs.ErrInternal.WrapErr(err, "create topic", "topic", t)
		}
		log.Info("topic created", zap.String("topic", t), zap.Int32("partitions", partitions))
	}
	return nil
}

func strPtr(s string) *string { return &s }
