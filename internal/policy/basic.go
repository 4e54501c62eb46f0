package policy

// Basic returns the built-in policy: multi-deck basic strategy for a dealer
// who hits soft 17, with doubling on any two cards, pair splits encoded as
// conditional split codes, and Hi-Lo index plays that vary the decision
// across the true-count axis.
//
// Cells no two-card hand can reach (totals below 4, soft totals below 12)
// hold CodeHit. Total 21 doubles as the bust sentinel and always stands.
func Basic() *Grid {
	g := &Grid{}
	for total := 0; total < Totals; total++ {
		for _, soft := range []bool{false, true} {
			for up := 0; up < Upcards; up++ {
				for count := 0; count < CountBuckets; count++ {
					tc := count - CountOffset
					code := basicCode(total, soft, up+2, tc)
					if splitsPair(total, soft, up+2) {
						code += CodeSplitOrHit
					}
					g.Set(total, soft, up, count, code)
				}
			}
		}
	}
	return g
}

// basicCode returns hit/stand/double for a hand. dealer is the upcard value
// with Ace as 11; tc is the bucket's true count.
func basicCode(total int, soft bool, dealer, tc int) Code {
	if total >= MaxTotal {
		return CodeStand
	}
	if soft {
		return softCode(total, dealer)
	}
	return hardCode(total, dealer, tc)
}

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

func hardCode(total, dealer, tc int) Code {
	switch {
	case total < 4:
		return CodeHit
	case total <= 8:
		return CodeHit
	case total == 9:
		if between(dealer, 3, 6) ||
			(dealer == 2 && tc >= 1) ||
			(dealer == 7 && tc >= 3) {
			return CodeDouble
		}
		return CodeHit
	case total == 10:
		if between(dealer, 2, 9) || tc >= 4 {
			return CodeDouble
		}
		return CodeHit
	case total == 11:
		return CodeDouble
	case total == 12:
		switch dealer {
		case 2:
			return standIf(tc >= 3)
		case 3:
			return standIf(tc >= 2)
		case 4:
			return standIf(tc >= 0)
		case 5:
			return standIf(tc >= -1)
		case 6:
			return standIf(tc >= 0)
		}
		return CodeHit
	case total <= 16:
		if between(dealer, 2, 6) {
			switch {
			case total == 13 && dealer == 2:
				return standIf(tc >= 0)
			case total == 13 && dealer == 3:
				return standIf(tc >= -1)
			}
			return CodeStand
		}
		switch {
		case total == 16 && dealer == 10:
			return standIf(tc >= 0)
		case total == 16 && dealer == 9:
			return standIf(tc >= 5)
		case total == 15 && dealer == 10:
			return standIf(tc >= 4)
		}
		return CodeHit
	default:
		return CodeStand
	}
}

func softCode(total, dealer int) Code {
	switch {
	case total < 12:
		return CodeHit
	case total <= 14:
		if between(dealer, 5, 6) {
			return CodeDouble
		}
		return CodeHit
	case total <= 16:
		if between(dealer, 4, 6) {
			return CodeDouble
		}
		return CodeHit
	case total == 17:
		if between(dealer, 3, 6) {
			return CodeDouble
		}
		return CodeHit
	case total == 18:
		switch {
		case between(dealer, 3, 6):
			return CodeDouble
		case dealer == 2 || dealer == 7 || dealer == 8:
			return CodeStand
		}
		return CodeHit
	default:
		return CodeStand
	}
}

func standIf(cond bool) Code {
	if cond {
		return CodeStand
	}
	return CodeHit
}

// splitsPair reports whether the pair that produces this two-card total
// should be split. Each even hard total has exactly one pair composition and
// soft 12 is only reachable as A,A; 5,5 and 10,10 are never split.
func splitsPair(total int, soft bool, dealer int) bool {
	if soft {
		return total == 12
	}
	switch total {
	case 4, 6, 14:
		return between(dealer, 2, 7)
	case 8:
		return between(dealer, 5, 6)
	case 12:
		return between(dealer, 2, 6)
	case 16:
		return true
	case 18:
		return between(dealer, 2, 6) || dealer == 8 || dealer == 9
	}
	return false
}
