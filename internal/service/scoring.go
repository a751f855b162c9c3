package service

import (
	"math"

	"github.com/sophia-ai/capability-router/internal/domain"
)

// Scoring weights. Changing any of these changes which server wins.
const (
	performanceWeight = 0.6
	reliabilityWeight = 0.4

	healthyMultiplier   = 1.0
	degradedMultiplier  = 0.7
	unhealthyMultiplier = 0.1
	unknownMultiplier   = 0.3

	latencyFloor   = 0.5
	preferredBoost = 1.2
)

// Score ranks a capability record under the given health status.
// It is only meaningful relative to other scores for the same capability.
func Score(sc domain.ServerCapability, status string) float64 {
	base := sc.PerformanceScore*performanceWeight + sc.ReliabilityScore*reliabilityWeight
	return base * HealthMultiplier(status) * LatencyFactor(sc.AverageLatencyMs)
}

// HealthMultiplier penalises degraded and unhealthy servers. Unhealthy
// servers keep a small non-zero weight; unrecognised statuses count as unknown.
func HealthMultiplier(status string) float64 {
	switch status {
	case domain.StatusHealthy:
		return healthyMultiplier
	case domain.StatusDegraded:
		return degradedMultiplier
	case domain.StatusUnhealthy:
		return unhealthyMultiplier
	default:
		return unknownMultiplier
	}
}

// LatencyFactor shrinks the score by 0.1 per 100ms of average latency,
// never below half.
func LatencyFactor(latencyMs float64) float64 {
	return math.Max(latencyFloor, 1.0-latencyMs/1000)
}
