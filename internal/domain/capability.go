package domain

import "sort"

// Capability is a named unit of functionality a backend server can perform.
// The set is closed: every tag the router knows about is declared below.
type Capability string

const (
	CapabilityCodeAnalysis         Capability = "code_analysis"
	CapabilityCodeReview           Capability = "code_review"
	CapabilityCodeGeneration       Capability = "code_generation"
	CapabilityDatabaseQuery        Capability = "database_query"
	CapabilityDataWarehouse        Capability = "data_warehouse"
	CapabilityVectorSearch         Capability = "vector_search"
	CapabilityMemoryStorage        Capability = "memory_storage"
	CapabilityWebSearch            Capability = "web_search"
	CapabilityUIDesign             Capability = "ui_design"
	CapabilityProjectManagement    Capability = "project_management"
	CapabilitySalesCoaching        Capability = "sales_coaching"
	CapabilityCallAnalysis         Capability = "call_analysis"
	CapabilityCRMSync              Capability = "crm_sync"
	CapabilityBusinessIntelligence Capability = "business_intelligence"
	CapabilityInfrastructureOps    Capability = "infrastructure_ops"
)

var knownCapabilities = map[Capability]struct{}{
	CapabilityCodeAnalysis:         {},
	CapabilityCodeReview:           {},
	CapabilityCodeGeneration:       {},
	CapabilityDatabaseQuery:        {},
	CapabilityDataWarehouse:        {},
	CapabilityVectorSearch:         {},
	CapabilityMemoryStorage:        {},
	CapabilityWebSearch:            {},
	CapabilityUIDesign:             {},
	CapabilityProjectManagement:    {},
	CapabilitySalesCoaching:        {},
	CapabilityCallAnalysis:         {},
	CapabilityCRMSync:              {},
	CapabilityBusinessIntelligence: {},
	CapabilityInfrastructureOps:    {},
}

// ParseCapability converts a raw tag into a Capability.
// The second return value is false when the tag is not part of the closed set.
func ParseCapability(raw string) (Capability, bool) {
	c := Capability(raw)
	_, ok := knownCapabilities[c]
	return c, ok
}

// Valid reports whether c belongs to the closed capability set.
func (c Capability) Valid() bool {
	_, ok := knownCapabilities[c]
	return ok
}

func (c Capability) String() string {
	return string(c)
}

// AllCapabilities returns every known capability sorted by name.
func AllCapabilities() []Capability {
	out := make([]Capability, 0, len(knownCapabilities))
	for c := range knownCapabilities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
