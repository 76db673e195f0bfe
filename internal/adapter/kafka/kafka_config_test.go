package kafka_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aq2208/gcommerce-api/internal/adapter/kafka"
)

func TestNewGroupRequiresBrokers(t *testing.T) {
	_, err := kafka.NewGroup(nil, "gcommerce-api")
	assert.ErrorContains(t, err, "no brokers")

	_, err = kafka.NewGroup([]string{}, "gcommerce-api")
	assert.ErrorContains(t, err, "no brokers")
}
