package producer

import (
	"github.com/IBM/sarama"
)

// NewSyncProducer returns a producer that waits for full ISR acks, which
// the outbox publisher relies on before marking rows published.
func NewSyncProducer(brokerList []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	return sarama.NewSyncProducer(brokerList, cfg)
}
