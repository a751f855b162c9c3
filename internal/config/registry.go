package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sophia-ai/capability-router/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed registry.default.yaml
var defaultRegistry []byte

// Registry is the parsed registry seed: what each server can do and where
// to probe it.
type Registry struct {
	Capabilities []domain.ServerCapability
	Endpoints    []domain.Endpoint
}

type registryFile struct {
	Servers []serverEntry `yaml:"servers"`
}

type serverEntry struct {
	Name         string            `yaml:"name"`
	Endpoint     *domain.Endpoint  `yaml:"endpoint"`
	Capabilities []capabilityEntry `yaml:"capabilities"`
}

type capabilityEntry struct {
	Capability       string   `yaml:"capability"`
	Performance      *float64 `yaml:"performance"`
	Reliability      *float64 `yaml:"reliability"`
	CostPerRequest   float64  `yaml:"cost_per_request"`
	AverageLatencyMs float64  `yaml:"average_latency_ms"`
}

// LoadRegistry reads the seed at path, or the built-in fleet when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(defaultRegistry)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("registry file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates a YAML registry seed.
// Omitted scores default to domain.DefaultScore.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	reg := &Registry{}
	seen := make(map[string]bool, len(file.Servers))
	for i, srv := range file.Servers {
		if srv.Name == "" {
			return nil, &domain.ErrValidation{Field: fmt.Sprintf("servers[%d].name", i), Message: "is required"}
		}
		if seen[srv.Name] {
			return nil, &domain.ErrValidation{Field: "servers." + srv.Name, Message: "is declared twice"}
		}
		seen[srv.Name] = true

		for _, c := range srv.Capabilities {
			sc, err := c.resolve(srv.Name)
			if err != nil {
				return nil, err
			}
			reg.Capabilities = append(reg.Capabilities, sc)
		}

		if srv.Endpoint != nil {
			ep := *srv.Endpoint
			ep.Server = srv.Name
			if ep.Kind == "" {
				ep.Kind = domain.EndpointHTTP
			}
			if err := validateEndpoint(ep); err != nil {
				return nil, err
			}
			reg.Endpoints = append(reg.Endpoints, ep)
		}
	}
	return reg, nil
}

func (c capabilityEntry) resolve(server string) (domain.ServerCapability, error) {
	capability, ok := domain.ParseCapability(c.Capability)
	if !ok {
		return domain.ServerCapability{}, &domain.ErrValidation{
			Field:   "servers." + server + ".capabilities",
			Message: fmt.Sprintf("unknown capability %q", c.Capability),
		}
	}
	if c.CostPerRequest < 0 || c.AverageLatencyMs < 0 {
		return domain.ServerCapability{}, &domain.ErrValidation{
			Field:   "servers." + server + ".capabilities." + c.Capability,
			Message: "cost_per_request and average_latency_ms must not be negative",
		}
	}

	update := domain.CapabilityUpdate{
		PerformanceScore: c.Performance,
		ReliabilityScore: c.Reliability,
		CostPerRequest:   c.CostPerRequest,
		AverageLatencyMs: c.AverageLatencyMs,
	}
	return update.ToServerCapability(server, capability), nil
}

func validateEndpoint(ep domain.Endpoint) error {
	field := "servers." + ep.Server + ".endpoint"
	switch ep.Kind {
	case domain.EndpointHTTP, domain.EndpointMCP:
		if ep.URL == "" {
			return &domain.ErrValidation{Field: field + ".url", Message: "is required for " + ep.Kind + " endpoints"}
		}
	case domain.EndpointQdrant:
		if ep.Host == "" {
			return &domain.ErrValidation{Field: field + ".host", Message: "is required for qdrant endpoints"}
		}
	default:
		return &domain.ErrValidation{Field: field + ".kind", Message: fmt.Sprintf("unsupported kind %q", ep.Kind)}
	}
	return nil
}
