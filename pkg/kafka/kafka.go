package kafka

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/KendrickOdei/fastTix-sub000/config"
)

// NewProducer constructs a confluent kafka producer from config. SASL is
// only configured when a username is present.
func NewProducer() *kafka.Producer {
	c := config.Get()

	cm := kafka.ConfigMap{
		"bootstrap.servers": c.Kafka.BootstrapServers,
		"acks":              "all",
	}

	if c.Kafka.SASLUsername != "" {
		_ = cm.SetKey("security.protocol", "SASL_SSL")
		_ = cm.SetKey("sasl.mechanisms", "PLAIN")
		_ = cm.SetKey("sasl.username", c.Kafka.SASLUsername)
		_ = cm.SetKey("sasl.password", c.Kafka.SASLPassword)
	}

	p, err := kafka.NewProducer(&cm)
	if err != nil {
		panic(err)
	}

	return p
}
