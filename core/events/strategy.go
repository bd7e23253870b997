package events

// StrategyEvent is emitted when the matching orchestrator chooses a path.
// Action can be "ai_attempt", "ai_failure", "rule_fallback" or "rule".
type StrategyEvent struct {
	Action string
	Err    error
}
