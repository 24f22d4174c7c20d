package dedupe

// Ratio computes the Ratcliff/Obershelp similarity of two strings:
// 2*M / (len(a)+len(b)), where M is the total length of matching blocks found
// by recursively taking the longest common substring and matching the pieces
// to its left and right. Result is in [0, 1]; two empty strings are 1.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchTotal(ra, rb)) / float64(total)
}

// matchTotal counts the characters covered by matching blocks.
func matchTotal(a, b []rune) int {
	ai, bi, n := longestMatch(a, b)
	if n == 0 {
		return 0
	}
	return n + matchTotal(a[:ai], b[:bi]) + matchTotal(a[ai+n:], b[bi+n:])
}

// longestMatch finds the longest common substring, preferring the earliest
// position in a on ties. Dynamic programming over a single row keeps it at
// O(len(a)*len(b)) time and O(len(b)) space.
func longestMatch(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			if a[i] != b[j] {
				cur[j+1] = 0
				continue
			}
			cur[j+1] = prev[j] + 1
			if cur[j+1] > size {
				size = cur[j+1]
				ai = i - size + 1
				bi = j - size + 1
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
