package service_test

import (
	"fmt"
	"testing"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(i int) domain.DecisionRecord {
	return domain.DecisionRecord{PrimaryServer: fmt.Sprintf("srv_%d", i), Confidence: float64(i)}
}

func TestDecisionLog_BelowCapacity(t *testing.T) {
	log := service.NewDecisionLog(3)
	log.Record(record(1))
	log.Record(record(2))

	assert.Equal(t, 2, log.Len())
	assert.Equal(t, []domain.DecisionRecord{record(1), record(2)}, log.Entries())
}

func TestDecisionLog_EvictsOldest(t *testing.T) {
	log := service.NewDecisionLog(3)
	for i := 1; i <= 7; i++ {
		log.Record(record(i))
	}

	require.Equal(t, 3, log.Len())
	assert.Equal(t, []domain.DecisionRecord{record(5), record(6), record(7)}, log.Entries())
}

func TestDecisionLog_ExactlyFull(t *testing.T) {
	log := service.NewDecisionLog(2)
	log.Record(record(1))
	log.Record(record(2))

	assert.Equal(t, []domain.DecisionRecord{record(1), record(2)}, log.Entries())
}

func TestDecisionLog_DefaultCapacity(t *testing.T) {
	log := service.NewDecisionLog(0)
	for i := 0; i < service.DecisionLogCapacity+1; i++ {
		log.Record(record(i))
	}

	assert.Equal(t, service.DecisionLogCapacity, log.Len())
	assert.Equal(t, record(1), log.Entries()[0])
}

func TestDecisionLog_EntriesIsACopy(t *testing.T) {
	log := service.NewDecisionLog(2)
	log.Record(record(1))

	entries := log.Entries()
	entries[0].PrimaryServer = "mutated"

	assert.Equal(t, "srv_1", log.Entries()[0].PrimaryServer)
}
