package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/calls"

	"go.uber.org/zap"
)

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 365
	unknownAgentName  = "Unknown"
)

// CallSource reads a tenant's call logs for a time window.
type CallSource interface {
	Between(ctx context.Context, tenantID string, from, to time.Time) ([]calls.CallLog, error)
}

// AgentDirectory lists a tenant's agents so calls can be labelled by name.
type AgentDirectory interface {
	List(ctx context.Context, tenantID string) ([]agents.Summary, error)
}

type Service struct {
	calls  CallSource
	agents AgentDirectory
	cache  Cache
	ttl    time.Duration
	log    *zap.Logger
	clock  func() time.Time
}

// NewService builds the analytics service. cache may be nil to disable
// caching.
func NewService(src CallSource, dir AgentDirectory, cache Cache, ttl time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{calls: src, agents: dir, cache: cache, ttl: ttl, log: log, clock: time.Now}
}

// ClampPeriod applies the default and bounds to a requested period in days.
func ClampPeriod(days int) int {
	switch {
	case days <= 0:
		return defaultPeriodDays
	case days > maxPeriodDays:
		return maxPeriodDays
	default:
		return days
	}
}

func cacheKey(tenantID string, days int) string {
	return fmt.Sprintf("analytics:%s:%d", tenantID, days)
}

// Analytics aggregates the tenant's calls started in the last periodDays.
func (s *Service) Analytics(ctx context.Context, tenantID string, periodDays int) (Analytics, error) {
	if tenantID == "" {
		return Analytics{}, ErrInvalidRequest
	}
	days := ClampPeriod(periodDays)
	key := cacheKey(tenantID, days)

	if s.cache != nil && s.ttl > 0 {
		var cached Analytics
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit && err == nil {
			return cached, nil
		}
	}

	to := s.clock().UTC()
	from := to.AddDate(0, 0, -days)
	logs, err := s.calls.Between(ctx, tenantID, from, to)
	if err != nil {
		return Analytics{}, fmt.Errorf("load calls: %w", err)
	}
	names := map[string]string{}
	if s.agents != nil {
		list, err := s.agents.List(ctx, tenantID)
		if err != nil {
			return Analytics{}, fmt.Errorf("load agents: %w", err)
		}
		for _, a := range list {
			names[a.ID] = a.Name
		}
	}

	out := aggregate(logs, names)
	out.PeriodDays, out.From, out.To = days, from, to

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, key, out, s.ttl); err != nil {
			s.log.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

func aggregate(logs []calls.CallLog, names map[string]string) Analytics {
	var (
		sum       Summary
		durTotal  int
		durCount  int
		byDay     = map[string]int{}
		byAgent   = map[string]int{}
		byOutcome = map[string]int{}
	)
	for _, c := range logs {
		sum.TotalCalls++
		switch c.Status {
		case calls.StatusCompleted:
			sum.CompletedCalls++
			if c.DurationSeconds != nil {
				durTotal += *c.DurationSeconds
				durCount++
			}
		case calls.StatusFailed:
			sum.FailedCalls++
		case calls.StatusVoicemail:
			sum.Voicemails++
		}

		byDay[c.StartedAt.UTC().Format(time.DateOnly)]++

		agentID := ""
		if c.AgentID != nil {
			agentID = *c.AgentID
		}
		byAgent[agentID]++

		if c.Outcome != "" {
			byOutcome[c.Outcome]++
		}
	}

	if sum.TotalCalls > 0 {
		sum.AnswerRate = int(math.Round(float64(sum.CompletedCalls+sum.Voicemails) / float64(sum.TotalCalls) * 100))
	}
	if durCount > 0 {
		sum.AvgDurationSeconds = float64(durTotal) / float64(durCount)
	}

	out := Analytics{
		Summary:        sum,
		CallsByDay:     make([]DayCount, 0, len(byDay)),
		CallsByAgent:   make([]AgentCount, 0, len(byAgent)),
		CallsByOutcome: make([]OutcomeCount, 0, len(byOutcome)),
	}
	for d, n := range byDay {
		out.CallsByDay = append(out.CallsByDay, DayCount{Date: d, Count: n})
	}
	sort.Slice(out.CallsByDay, func(i, j int) bool { return out.CallsByDay[i].Date < out.CallsByDay[j].Date })

	for id, n := range byAgent {
		name, ok := names[id]
		if !ok || name == "" {
			name = unknownAgentName
		}
		out.CallsByAgent = append(out.CallsByAgent, AgentCount{AgentID: id, AgentName: name, Count: n})
	}
	sort.Slice(out.CallsByAgent, func(i, j int) bool {
		a, b := out.CallsByAgent[i], out.CallsByAgent[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.AgentName != b.AgentName {
			return a.AgentName < b.AgentName
		}
		return a.AgentID < b.AgentID
	})

	for o, n := range byOutcome {
		out.CallsByOutcome = append(out.CallsByOutcome, OutcomeCount{Outcome: o, Count: n})
	}
	sort.Slice(out.CallsByOutcome, func(i, j int) bool {
		a, b := out.CallsByOutcome[i], out.CallsByOutcome[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Outcome < b.Outcome
	})
	return out
}
