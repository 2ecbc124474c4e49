package basket

import "strings"

// PairRules are keyword pairs that go well or badly together in one basket
type PairRules struct {
	Positive [][2]string
	Negative [][2]string
}

// DefaultPairRules is the built-in compatibility matrix.
func DefaultPairRules() PairRules {
	return PairRules{
		Positive: [][2]string{
			{"курица", "рис"},
			{"курица", "гречка"},
			{"курица", "картофель"},
			{"говядина", "гречка"},
			{"говядина", "картофель"},
			{"рыба", "картофель"},
			{"рыба", "лимон"},
			{"треска", "картофель"},
			{"макароны", "сыр"},
			{"спагетти", "фарш"},
			{"хлеб", "масло"},
			{"хлеб", "сыр"},
			{"чай", "печенье"},
			{"кофе", "молоко"},
			{"творог", "сметана"},
			{"помидор", "огурц"},
			{"свекла", "капуста"},
			{"яйца", "молоко"},
			{"йогурт", "яблок"},
			{"каша", "молоко"},
		},
		Negative: [][2]string{
			{"рыба", "молоко"},
			{"сельдь", "молоко"},
			{"селедка", "молоко"},
			{"огурц", "молоко"},
			{"арбуз", "молоко"},
			{"рыба", "кофе"},
			{"квас", "молоко"},
			{"пиво", "молоко"},
			{"грибы", "молоко"},
			{"дыня", "мед"},
		},
	}
}

// Check returns +0.1 for a positive pair, -0.2 for a negative pair and 0
// otherwise. Positive pairs are checked first.
func (r PairRules) Check(name1, name2 string) float64 {
	a := strings.ToLower(name1)
	b := strings.ToLower(name2)
	if matchPair(r.Positive, a, b) {
		return 0.1
	}
	if matchPair(r.Negative, a, b) {
		return -0.2
	}
	return 0
}

func matchPair(pairs [][2]string, a, b string) bool {
	for _, pair := range pairs {
		k1 := strings.ToLower(pair[0])
		k2 := strings.ToLower(pair[1])
		if (strings.Contains(a, k1) && strings.Contains(b, k2)) ||
			(strings.Contains(b, k1) && strings.Contains(a, k2)) {
			return true
		}
	}
	return false
}
