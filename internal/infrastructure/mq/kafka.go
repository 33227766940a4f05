package mq

import (
	"log"

	"github.com/IBM/sarama"

	"tokencore/internal/config"
)

var KafkaProducer sarama.SyncProducer

// InitKafka creates the synchronous producer the outbox sender publishes
// token-lifecycle events through.
func InitKafka(cfg *config.KafkaConfig) sarama.SyncProducer {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		log.Fatalf("failed to create Kafka producer: %v", err)
	}

	KafkaProducer = producer
	log.Println("Kafka producer ready")
	return producer
}

// SendMessage publishes one outbox row. key is always the payment
// reference or work_item_id the event is about, never a random id: Sarama
// hashes the key to pick a partition, so every token.* event for the same
// reference lands on the same partition and a consumer reading one
// partition in order never sees token.credited before
// token.purchase_initiated.
func SendMessage(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}

	_, _, err := KafkaProducer.SendMessage(msg)
	return err
}

func CloseKafka() {
	if KafkaProducer != nil {
		KafkaProducer.Close()
	}
}
