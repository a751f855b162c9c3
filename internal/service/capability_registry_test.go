package service_test

import (
	"testing"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityRegistry_SeedAndLookup(t *testing.T) {
	reg := service.NewCapabilityRegistry([]domain.ServerCapability{
		{ServerName: "github", Capability: domain.CapabilityCodeReview, PerformanceScore: 0.8},
		{ServerName: "codacy", Capability: domain.CapabilityCodeAnalysis, PerformanceScore: 0.9},
		{ServerName: "codacy", Capability: domain.CapabilityCodeReview, PerformanceScore: 0.85},
	})

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"github", "codacy"}, reg.Servers())
	assert.Equal(t, []string{"github", "codacy"}, reg.ServersFor(domain.CapabilityCodeReview))
	assert.Equal(t, []string{"codacy"}, reg.ServersFor(domain.CapabilityCodeAnalysis))
	assert.Empty(t, reg.ServersFor(domain.CapabilityWebSearch))
	assert.Equal(t,
		[]domain.Capability{domain.CapabilityCodeAnalysis, domain.CapabilityCodeReview},
		reg.CapabilitiesFor("codacy"),
	)
}

func TestCapabilityRegistry_UpsertReplacesInPlace(t *testing.T) {
	reg := service.NewCapabilityRegistry([]domain.ServerCapability{
		{ServerName: "linear", Capability: domain.CapabilityProjectManagement, PerformanceScore: 0.5},
		{ServerName: "linear", Capability: domain.CapabilityCRMSync, PerformanceScore: 0.5},
	})

	reg.Upsert(domain.ServerCapability{ServerName: "linear", Capability: domain.CapabilityProjectManagement, PerformanceScore: 0.95})

	candidates := reg.Candidates(domain.CapabilityProjectManagement)
	assert.Len(t, candidates, 1)
	assert.Equal(t, 0.95, candidates[0].PerformanceScore)
	assert.Equal(t,
		[]domain.Capability{domain.CapabilityProjectManagement, domain.CapabilityCRMSync},
		reg.CapabilitiesFor("linear"),
	)
	assert.Equal(t, 1, reg.Len())
}

func TestCapabilityRegistry_Coverage(t *testing.T) {
	reg := service.NewCapabilityRegistry([]domain.ServerCapability{
		{ServerName: "ai_memory", Capability: domain.CapabilityMemoryStorage},
		{ServerName: "ai_memory", Capability: domain.CapabilityVectorSearch},
		{ServerName: "qdrant_admin", Capability: domain.CapabilityVectorSearch},
	})

	cov := reg.Coverage()

	assert.Len(t, cov, 2)
	assert.Equal(t, []string{"ai_memory"}, cov[domain.CapabilityMemoryStorage])
	assert.Equal(t, []string{"ai_memory", "qdrant_admin"}, cov[domain.CapabilityVectorSearch])
	_, hasWeb := cov[domain.CapabilityWebSearch]
	assert.False(t, hasWeb)
}

func TestCapabilityRegistry_UnknownServer(t *testing.T) {
	reg := service.NewCapabilityRegistry(nil)

	caps := reg.CapabilitiesFor("ghost")
	assert.NotNil(t, caps)
	assert.Empty(t, caps)
	assert.Zero(t, reg.Len())
}
