package domain

// ActionType is a chance-based special move.
type ActionType string

const (
	ActionRoll   ActionType = "roll"
	ActionForce  ActionType = "force"
	ActionShield ActionType = "shield"
)

// FlipResult is the outcome of an action's coin flip.
type FlipResult string

const (
	Heads FlipResult = "heads"
	Tails FlipResult = "tails"
)

// ActionSuccessRates is the probability of heads per action type.
var ActionSuccessRates = map[ActionType]float64{
	ActionRoll:   0.5,
	ActionForce:  0.5,
	ActionShield: 0.5,
}

// Payout is the score change applied on heads. Tails changes nothing.
type Payout struct {
	Actor  int64
	Target int64
}

// ActionPayouts is the score table per action type.
var ActionPayouts = map[ActionType]Payout{
	ActionRoll:   {Actor: 2},
	ActionForce:  {Actor: 1, Target: -2},
	ActionShield: {Actor: 1},
}

// ParseActionType validates a client supplied action name.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if _, ok := ActionSuccessRates[a]; !ok {
		return "", ErrInvalidAction.With("unknown action type: "+s, map[string]string{"action": s})
	}
	return a, nil
}

// Flipper decides a weighted coin flip.
type Flipper interface {
	Flip(rate float64) bool
}

// Deltas computes the score changes of an action outcome.
func Deltas(action ActionType, actorID int64, targetID *int64, result FlipResult) map[int64]int64 {
	deltas := map[int64]int64{}
	if result != Heads {
		return deltas
	}
	p := ActionPayouts[action]
	if p.Actor != 0 {
		deltas[actorID] += p.Actor
	}
	if p.Target != 0 && targetID != nil {
		deltas[*targetID] += p.Target
	}
	return deltas
}
