package statistics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// RoundResult is the outcome of a single blackjack round.
type RoundResult struct {
	Profit          float64 // Net units won/lost across every hand of the round
	Wagered         int     // Units staked, including doubles and splits
	PlayerBlackjack bool
	DealerBlackjack bool
	Hands           int // Hands played, 1 plus splits
	Doubles         int
	Splits          int
}

// Statistics accumulates round results. Two accumulators built from
// disjoint rounds combine with Merge.
type Statistics struct {
	Rounds  int
	Sum     float64
	Sum2    float64 // Sum of squares for variance calculation
	Wagered int64

	Wins   int
	Losses int
	Pushes int

	PlayerBlackjacks int
	DealerBlackjacks int
	Hands            int
	Doubles          int
	Splits           int

	// Profit split by how the round ended, for ledger checks.
	NaturalProfit float64
	PlayedProfit  float64

	// Outcomes counts rounds by exact profit. Profits take few distinct
	// values, so this replaces storing every result.
	Outcomes map[float64]int
}

// Add incorporates a round.
func (s *Statistics) Add(r RoundResult) {
	s.Rounds++
	s.Sum += r.Profit
	s.Sum2 += r.Profit * r.Profit
	s.Wagered += int64(r.Wagered)

	switch {
	case r.Profit > 0:
		s.Wins++
	case r.Profit < 0:
		s.Losses++
	default:
		s.Pushes++
	}

	if r.PlayerBlackjack {
		s.PlayerBlackjacks++
	}
	if r.DealerBlackjack {
		s.DealerBlackjacks++
	}
	if r.PlayerBlackjack || r.DealerBlackjack {
		s.NaturalProfit += r.Profit
	} else {
		s.PlayedProfit += r.Profit
	}
	s.Hands += r.Hands
	s.Doubles += r.Doubles
	s.Splits += r.Splits

	if s.Outcomes == nil {
		s.Outcomes = make(map[float64]int)
	}
	s.Outcomes[r.Profit]++
}

// Merge adds other into s.
func (s *Statistics) Merge(other *Statistics) {
	if other == nil {
		return
	}
	s.Rounds += other.Rounds
	s.Sum += other.Sum
	s.Sum2 += other.Sum2
	s.Wagered += other.Wagered
	s.Wins += other.Wins
	s.Losses += other.Losses
	s.Pushes += other.Pushes
	s.PlayerBlackjacks += other.PlayerBlackjacks
	s.DealerBlackjacks += other.DealerBlackjacks
	s.Hands += other.Hands
	s.Doubles += other.Doubles
	s.Splits += other.Splits
	s.NaturalProfit += other.NaturalProfit
	s.PlayedProfit += other.PlayedProfit
	if len(other.Outcomes) > 0 && s.Outcomes == nil {
		s.Outcomes = make(map[float64]int, len(other.Outcomes))
	}
	for v, n := range other.Outcomes {
		s.Outcomes[v] += n
	}
}

// Mean returns the expected value in units per round.
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.Sum / float64(s.Rounds)
}

// EVPercent is the mean profit as a percentage of the initial one-unit bet.
func (s *Statistics) EVPercent() float64 {
	return s.Mean() * 100
}

// EVPerWagered is profit per unit actually staked, counting doubles and
// splits.
func (s *Statistics) EVPerWagered() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return s.Sum / float64(s.Wagered)
}

func (s *Statistics) rate(n int) float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(n) / float64(s.Rounds)
}

// WinRate is the fraction of rounds with positive profit.
func (s *Statistics) WinRate() float64 { return s.rate(s.Wins) }

// LossRate is the fraction of rounds with negative profit.
func (s *Statistics) LossRate() float64 { return s.rate(s.Losses) }

// PushRate is the fraction of rounds with zero profit.
func (s *Statistics) PushRate() float64 { return s.rate(s.Pushes) }

// WinScore scores each round 100 for a win, 50 for a push and 0 for a loss
// and returns the truncated integer mean.
func (s *Statistics) WinScore() int {
	if s.Rounds == 0 {
		return 0
	}
	return (100*s.Wins + 50*s.Pushes) / s.Rounds
}

// Variance returns the sample variance of round profits.
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	v := (s.Sum2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
	return math.Max(v, 0)
}

// StdDev returns the sample standard deviation of round profits.
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean.
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

func (s *Statistics) sortedOutcomes() []float64 {
	values := make([]float64, 0, len(s.Outcomes))
	for v := range s.Outcomes {
		values = append(values, v)
	}
	sort.Float64s(values)
	return values
}

// nth returns the k-th smallest profit (0-based).
func (s *Statistics) nth(values []float64, k int) float64 {
	seen := 0
	for _, v := range values {
		seen += s.Outcomes[v]
		if k < seen {
			return v
		}
	}
	return values[len(values)-1]
}

// Median returns the median round profit.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the profit at the given percentile (0.0 to 1.0),
// interpolating between neighbouring ranks.
func (s *Statistics) Percentile(p float64) float64 {
	if s.Rounds == 0 || len(s.Outcomes) == 0 {
		return 0
	}
	p = math.Min(math.Max(p, 0), 1)
	values := s.sortedOutcomes()

	index := p * float64(s.Rounds-1)
	lower := int(index)
	upper := lower + 1
	if upper >= s.Rounds {
		return s.nth(values, s.Rounds-1)
	}
	weight := index - float64(lower)
	lo, hi := s.nth(values, lower), s.nth(values, upper)
	return lo*(1-weight) + hi*weight
}

// IsLedgerBalanced checks the natural and played buckets add up to the total.
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.Sum-s.NaturalProfit-s.PlayedProfit) <= 1e-6*math.Max(1, math.Abs(s.Sum))
}

// Validate checks the accumulator is internally consistent.
func (s *Statistics) Validate() error {
	if s.Rounds < 0 {
		return errors.New("negative round count")
	}
	if s.Wins+s.Losses+s.Pushes != s.Rounds {
		return fmt.Errorf("outcome counts %d+%d+%d do not sum to %d rounds", s.Wins, s.Losses, s.Pushes, s.Rounds)
	}
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: sum=%.6f natural=%.6f played=%.6f", s.Sum, s.NaturalProfit, s.PlayedProfit)
	}
	histogram := 0
	for _, n := range s.Outcomes {
		histogram += n
	}
	if histogram != s.Rounds {
		return fmt.Errorf("outcome histogram holds %d rounds, want %d", histogram, s.Rounds)
	}
	if s.Rounds > 0 && s.Wagered < int64(s.Rounds) {
		return fmt.Errorf("wagered %d units over %d rounds", s.Wagered, s.Rounds)
	}
	if s.Variance() < 0 {
		return errors.New("negative variance")
	}
	return nil
}

func (s *Statistics) String() string {
	lo, hi := s.ConfidenceInterval95()
	return fmt.Sprintf("%d rounds, EV %.3f%% (95%% CI %.3f%%..%.3f%%), W/L/P %.2f%%/%.2f%%/%.2f%%",
		s.Rounds, s.EVPercent(), lo*100, hi*100, s.WinRate()*100, s.LossRate()*100, s.PushRate()*100)
}
