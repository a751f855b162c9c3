package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/infra/client"

	"github.com/stretchr/testify/assert"
)

func TestQdrantProber_RequiresHost(t *testing.T) {
	p := client.NewQdrantProber("")
	defer p.Close()

	_, err := p.Probe(context.Background(), domain.Endpoint{Server: "qdrant_admin", Kind: domain.EndpointQdrant})

	var validation *domain.ErrValidation
	assert.ErrorAs(t, err, &validation)
}

func TestQdrantProber_Unreachable(t *testing.T) {
	p := client.NewQdrantProber("")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := p.Probe(ctx, domain.Endpoint{
		Server: "qdrant_admin",
		Kind:   domain.EndpointQdrant,
		Host:   "127.0.0.1",
		Port:   1,
	})

	assert.Error(t, err)
}
