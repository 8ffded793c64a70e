package engine

// Environment is the per-step interface online agents are trained against.
type Environment interface {
	Reset() int
	Step(action int) (next int, reward float64, terminated, truncated bool)
	States() int
	Actions() int
}

// ModelProvider exposes the full transition model planners consume.
type ModelProvider interface {
	TransitionModel() TransitionModel
}

// Policy maps a state to an action, as solved planners do.
type Policy interface {
	GetAction(state int) (int, error)
}

// EvaluatePolicy plays episodes greedily with p and reports the average total reward.
func EvaluatePolicy(env Environment, p Policy, episodes int) (float64, error) {
	if episodes <= 0 {
		return 0, invalidf("episodes must be positive (got %d)", episodes)
	}
	total := 0.0
	for ep := 0; ep < episodes; ep++ {
		state := env.Reset()
		for {
			action, err := p.GetAction(state)
			if err != nil {
				return 0, err
			}
			next, reward, terminated, truncated := env.Step(action)
			total += reward
			state = next
			if terminated || truncated {
				break
			}
		}
	}
	return total / float64(episodes), nil
}
