package sequential

import "context"

// Policy decides the next action of an episode
type Policy interface {
	Next(env *Env) Action
}

// GreedyPolicy takes the legal pick with the highest immediate reward.
// Ties go to the cheaper product, then the lower pool index. It skips when
// nothing is legal or every pick scores below a skip.
type GreedyPolicy struct{}

// Next implements Policy.
func (GreedyPolicy) Next(env *Env) Action {
	mask := env.Mask()
	best := Skip
	bestScore := RewardSkip
	bestPrice := 0.0

	for i := 0; i < env.Len(); i++ {
		if !mask[i] {
			continue
		}
		a := Action(i)
		score := env.Score(a)
		price := env.Product(a).PricePerUnit
		if best == Skip {
			if score < bestScore {
				continue
			}
		} else if score < bestScore || (score == bestScore && price >= bestPrice) {
			continue
		}
		best, bestScore, bestPrice = a, score, price
	}
	return best
}

// Episode summarizes a finished run
type Episode struct {
	Chosen      []int   `json:"chosen"`
	Cost        float64 `json:"cost"`
	TotalReward float64 `json:"total_reward"`
	Steps       int     `json:"steps"`
	Terminated  bool    `json:"terminated"`
	Truncated   bool    `json:"truncated"`
}

// Run resets env and drives it with policy until the episode ends or ctx
// is cancelled.
func Run(ctx context.Context, env *Env, policy Policy) (Episode, error) {
	env.Reset()
	var episode Episode

	for !env.Done() {
		if err := ctx.Err(); err != nil {
			return episode, err
		}
		result, err := env.Step(policy.Next(env))
		if err != nil {
			return episode, err
		}
		episode.TotalReward += result.Reward
		episode.Terminated = result.Terminated
		episode.Truncated = result.Truncated
	}

	episode.Chosen = env.Chosen()
	episode.Cost = env.Cost()
	episode.Steps = env.Steps()
	return episode, nil
}
