package syncengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Merge Rules
// ---------------------------------------------------------------------------

// MergeRule selects how a single field is merged between two conflicting values
type MergeRule string

const (
	// MergeSourceA keeps the first value's field
	MergeSourceA MergeRule = "source_a"
	// MergeSourceB keeps the second value's field
	MergeSourceB MergeRule = "source_b"
	// MergeMax keeps the numerically greater field
	MergeMax MergeRule = "max"
	// MergeMin keeps the numerically smaller field
	MergeMin MergeRule = "min"
	// MergeSum adds both numeric fields
	MergeSum MergeRule = "sum"
)

// IsValid returns true if the merge rule is valid
func (r MergeRule) IsValid() bool {
	switch r {
	case MergeSourceA, MergeSourceB, MergeMax, MergeMin, MergeSum:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Resolution Config
// ---------------------------------------------------------------------------

// ResolutionConfig selects the strategy and parameters for one entity type
type ResolutionConfig struct {
	Strategy       ResolutionStrategy
	SourcePriority []Source
	MergeRules     map[string]MergeRule
}

// DefaultResolutionConfig defers every conflict to manual review
func DefaultResolutionConfig() ResolutionConfig {
	return ResolutionConfig{Strategy: StrategyManualReview}
}

// Candidate is one competing write presented to the resolver
type Candidate struct {
	Source    Source
	Timestamp time.Time
	Value     Payload
}

// CandidatesFromEvents builds resolver candidates from implicated events
func CandidatesFromEvents(events []*SyncEvent) []Candidate {
	candidates := make([]Candidate, 0, len(events))
	for _, event := range events {
		candidates = append(candidates, Candidate{
			Source:    event.Source,
			Timestamp: event.Timestamp,
			Value:     event.After.Clone(),
		})
	}
	return candidates
}

// ---------------------------------------------------------------------------
// ConflictResolver
// ---------------------------------------------------------------------------

// ErrManualReviewRequired signals that the configured strategy defers the
// conflict to an operator; it is a first-class outcome, not a failure.
var ErrManualReviewRequired = errors.New("syncengine: conflict requires manual review")

// ConflictResolver applies the per-entity-type strategy to produce a single
// reconciled value from competing writes.
type ConflictResolver struct {
	byEntityType map[string]ResolutionConfig
	fallback     ResolutionConfig
}

// NewConflictResolver creates a resolver with per-entity-type configuration.
// Entity types without explicit configuration fall back to manual review.
func NewConflictResolver(byEntityType map[string]ResolutionConfig) *ConflictResolver {
	if byEntityType == nil {
		byEntityType = make(map[string]ResolutionConfig)
	}
	return &ConflictResolver{
		byEntityType: byEntityType,
		fallback:     DefaultResolutionConfig(),
	}
}

// ConfigFor returns the resolution config for an entity type
func (r *ConflictResolver) ConfigFor(entityType string) ResolutionConfig {
	if cfg, ok := r.byEntityType[entityType]; ok {
		return cfg
	}
	return r.fallback
}

// Resolve produces the reconciled value for the given candidates. Returns
// ErrManualReviewRequired when the strategy defers to an operator. All other
// strategies always succeed in producing a value.
func (r *ConflictResolver) Resolve(entityType string, candidates []Candidate) (Payload, ResolutionStrategy, error) {
	cfg := r.ConfigFor(entityType)

	switch cfg.Strategy {
	case StrategyLastWriteWins:
		return lastWriteWins(candidates), StrategyLastWriteWins, nil

	case StrategySourcePriority:
		for _, source := range cfg.SourcePriority {
			for _, candidate := range candidates {
				if candidate.Source == source {
					return candidate.Value.Clone(), StrategySourcePriority, nil
				}
			}
		}
		// No candidate matched the priority list
		return lastWriteWins(candidates), StrategySourcePriority, nil

	case StrategyMergeFields:
		merged, err := mergeFields(candidates, cfg.MergeRules)
		if err != nil {
			return nil, StrategyMergeFields, err
		}
		return merged, StrategyMergeFields, nil

	case StrategyManualReview:
		return nil, StrategyManualReview, ErrManualReviewRequired

	default:
		return nil, cfg.Strategy, fmt.Errorf("syncengine: unknown resolution strategy %q", cfg.Strategy)
	}
}

// lastWriteWins selects the candidate with the greatest timestamp, regardless
// of submission order.
func lastWriteWins(candidates []Candidate) Payload {
	if len(candidates) == 0 {
		return nil
	}
	winner := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Timestamp.After(winner.Timestamp) {
			winner = candidate
		}
	}
	return winner.Value.Clone()
}

// mergeFields merges exactly two conflicting values field by field. Fields
// without a rule default to the first value's field.
func mergeFields(candidates []Candidate, rules map[string]MergeRule) (Payload, error) {
	if len(candidates) != 2 {
		return nil, ErrUnresolvableValues
	}
	a, b := candidates[0].Value, candidates[1].Value

	merged := a.Clone()
	if merged == nil {
		merged = make(Payload)
	}
	// Fields only present in b carry over
	for field, value := range b {
		if _, ok := merged[field]; !ok {
			merged[field] = value
		}
	}

	for field, rule := range rules {
		switch rule {
		case MergeSourceA:
			if v, ok := a[field]; ok {
				merged[field] = v
			}
		case MergeSourceB:
			if v, ok := b[field]; ok {
				merged[field] = v
			}
		case MergeMax, MergeMin, MergeSum:
			da, errA := toDecimal(a[field])
			db, errB := toDecimal(b[field])
			if errA != nil || errB != nil {
				return nil, fmt.Errorf("syncengine: merge rule %q requires numeric field %q", rule, field)
			}
			switch rule {
			case MergeMax:
				merged[field] = decimal.Max(da, db)
			case MergeMin:
				merged[field] = decimal.Min(da, db)
			case MergeSum:
				merged[field] = da.Add(db)
			}
		default:
			return nil, fmt.Errorf("syncengine: unknown merge rule %q for field %q", rule, field)
		}
	}
	return merged, nil
}

// toDecimal coerces JSON payload values into a decimal for numeric merges
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		return decimal.NewFromString(n)
	case nil:
		return decimal.Decimal{}, errors.New("syncengine: field missing")
	default:
		return decimal.Decimal{}, fmt.Errorf("syncengine: value %v is not numeric", v)
	}
}
