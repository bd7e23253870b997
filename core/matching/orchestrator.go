package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/crisistriage/core/events"
	"github.com/kilianp07/crisistriage/core/logger"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/store"
	"github.com/kilianp07/crisistriage/internal/eventbus"
)

// Source identifies which matching path produced a result.
type Source string

const (
	SourceAI   Source = "ai"
	SourceRule Source = "rule"
)

// Result is a ranked match list tagged with the path that produced it.
type Result struct {
	Source   Source
	Matches  []model.ResourceMatch
	Warnings []string
}

// Config controls when AI matching is attempted.
type Config struct {
	AIEnabled       bool          `json:"ai_enabled"`
	AIMinConfidence float64       `json:"ai_min_confidence"`
	AITimeout       time.Duration `json:"ai_timeout"`
	MaxMatches      int           `json:"max_matches"`
	Weights         Weights       `json:"weights"`
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		AIEnabled:       false,
		AIMinConfidence: 0.6,
		AITimeout:       20 * time.Second,
		MaxMatches:      5,
		Weights:         DefaultWeights(),
	}
}

// ResourceFinder loads candidate resources.
type ResourceFinder interface {
	FindResources(ctx context.Context, f store.ResourceFilter) ([]model.Resource, error)
}

type warningMatcher interface {
	MatchWithWarnings(ctx context.Context, info model.ExtractedInformation, resources []model.Resource, maxMatches int) ([]model.ResourceMatch, []string, error)
}

// Orchestrator chooses between AI and rule-based matching. Rule-based
// matching is always available as the fallback.
type Orchestrator struct {
	finder ResourceFinder
	rule   Matcher
	ai     Matcher
	cfg    Config
	bus    eventbus.EventBus
	logger logger.Logger
}

// NewOrchestrator creates an orchestrator. ai may be nil, in which case only
// rule-based matching is used.
func NewOrchestrator(finder ResourceFinder, rule Matcher, ai Matcher, cfg Config, bus eventbus.EventBus, log logger.Logger) (*Orchestrator, error) {
	if finder == nil || rule == nil || log == nil {
		return nil, fmt.Errorf("matching: nil parameter provided to NewOrchestrator")
	}
	return &Orchestrator{finder: finder, rule: rule, ai: ai, cfg: cfg, bus: bus, logger: log}, nil
}

// MatchResources ranks the eligible resources for info. AI matching is used
// only when enabled and the extraction confidence reaches the configured
// minimum; any AI error or empty answer falls back to rule-based matching.
func (o *Orchestrator) MatchResources(ctx context.Context, info model.ExtractedInformation, maxMatches int) (Result, error) {
	if maxMatches <= 0 {
		maxMatches = o.cfg.MaxMatches
	}
	resources, err := o.finder.FindResources(ctx, store.Eligible())
	if err != nil {
		return Result{}, fmt.Errorf("load eligible resources: %w", err)
	}
	eligible := resources[:0:0]
	for _, r := range resources {
		if r.Eligible() {
			eligible = append(eligible, r)
		}
	}
	matchCandidates.Observe(float64(len(eligible)))
	if len(eligible) == 0 {
		o.logger.Warnf("no eligible resources available for matching")
		return o.finish(Result{Source: SourceRule, Matches: []model.ResourceMatch{}}), nil
	}

	if o.useAI(info) {
		o.publish(events.StrategyEvent{Action: "ai_attempt"})
		o.logger.Debugf("trying AI matching over %d resources", len(eligible))
		matches, warnings, err := o.matchAI(ctx, info, eligible, maxMatches)
		if err == nil && len(matches) > 0 {
			return o.finish(Result{Source: SourceAI, Matches: matches, Warnings: warnings}), nil
		}
		reason := "empty"
		if err != nil {
			reason = "error"
			o.logger.Warnf("AI matching failed: %v", err)
		} else {
			o.logger.Warnf("AI matching returned no recommendations")
		}
		aiFallbacks.WithLabelValues(reason).Inc()
		o.publish(events.StrategyEvent{Action: "ai_failure", Err: err})
		matches, err = o.rule.Match(ctx, info, eligible, maxMatches)
		if err != nil {
			return Result{}, err
		}
		o.publish(events.StrategyEvent{Action: "rule_fallback"})
		return o.finish(Result{Source: SourceRule, Matches: matches}), nil
	}

	o.publish(events.StrategyEvent{Action: "rule"})
	matches, err := o.rule.Match(ctx, info, eligible, maxMatches)
	if err != nil {
		return Result{}, err
	}
	return o.finish(Result{Source: SourceRule, Matches: matches}), nil
}

func (o *Orchestrator) useAI(info model.ExtractedInformation) bool {
	return o.cfg.AIEnabled && o.ai != nil && info.ExtractionConfidence >= o.cfg.AIMinConfidence
}

func (o *Orchestrator) matchAI(ctx context.Context, info model.ExtractedInformation, resources []model.Resource, maxMatches int) ([]model.ResourceMatch, []string, error) {
	if o.cfg.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AITimeout)
		defer cancel()
	}
	if wm, ok := o.ai.(warningMatcher); ok {
		return wm.MatchWithWarnings(ctx, info, resources, maxMatches)
	}
	matches, err := o.ai.Match(ctx, info, resources, maxMatches)
	return matches, nil, err
}

func (o *Orchestrator) finish(res Result) Result {
	matchRuns.WithLabelValues(string(res.Source)).Inc()
	if len(res.Matches) > 0 {
		topMatchScore.WithLabelValues(string(res.Source)).Observe(res.Matches[0].MatchScore)
	}
	return res
}

func (o *Orchestrator) publish(e events.StrategyEvent) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}
