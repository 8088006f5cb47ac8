package scoring

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of a and b, where T is
// the total rune count and M the number of runes in the matching blocks found
// by recursively taking the longest common substring. Two empty strings are
// identical (1); one empty string shares nothing (0).
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

type span struct{ alo, ahi, blo, bhi int }

// matchingRunes sums the sizes of all matching blocks of a and b.
func matchingRunes(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b2j, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside s. Among
// equally long blocks the one starting earliest in a, then in b, wins.
func longestMatch(a []rune, b2j map[rune][]int, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	j2len := map[int]int{}
	for i := s.alo; i < s.ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestk
}
