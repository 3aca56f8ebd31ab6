package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/config"
)

func TestRunRequiresBrokers(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Kafka.Brokers = nil

	err = run(cfg, 0)
	assert.ErrorContains(t, err, "kafka.brokers")
}
