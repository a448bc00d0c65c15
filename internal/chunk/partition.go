package chunk

import "math"

// partitionList splits a into k contiguous sublists with approximately equal
// sums. Boundaries start evenly spaced and are nudged toward the worst
// offending partition until there is no improvement for 5 iterations or 100
// iterations pass. The best partition seen is returned.
func partitionList(a []int, k int) [][]int {
	if k <= 1 {
		return [][]int{a}
	}
	if k >= len(a) {
		out := make([][]int, len(a))
		for i := range a {
			out[i] = a[i : i+1]
		}
		return out
	}

	between := make([]int, k-1)
	for i := range between {
		between[i] = (i + 1) * len(a) / k
	}

	total := 0
	for _, v := range a {
		total += v
	}
	average := float64(total) / float64(k)

	var best [][]int
	bestScore := math.Inf(1)
	noImprovements := 0

	for count := 0; ; count++ {
		parts := cutAt(a, between)
		heights := make([]int, k)
		for i, p := range parts {
			for _, v := range p {
				heights[i] += v
			}
		}

		worst := 0
		worstAbs := -1.0
		for i, h := range heights {
			if d := math.Abs(average - float64(h)); d > worstAbs {
				worstAbs = d
				worst = i
			}
		}
		worstDiff := average - float64(heights[worst])

		if worstAbs < bestScore {
			bestScore = worstAbs
			best = parts
			noImprovements = 0
		} else {
			noImprovements++
		}

		if worstDiff == 0 || noImprovements > 5 || count > 100 {
			return best
		}

		// Move the boundary adjacent to the worst partition in the
		// direction that shrinks its imbalance.
		move := 1
		if worstDiff < 0 {
			move = -1
		}
		var bound int
		switch {
		case worst == 0:
			bound = 0
		case worst == k-1:
			bound = k - 2
		case (worstDiff < 0) != (heights[worst-1] > heights[worst+1]):
			bound = worst - 1
		default:
			bound = worst
		}
		direction := 1
		if bound < worst {
			direction = -1
		}
		between[bound] += move * direction
		if between[bound] < 0 {
			between[bound] = 0
		}
		if between[bound] > len(a) {
			between[bound] = len(a)
		}
	}
}

// cutAt slices a at the given boundaries. Crossed boundaries produce empty
// parts rather than panicking.
func cutAt(a []int, between []int) [][]int {
	k := len(between) + 1
	parts := make([][]int, k)
	start := 0
	for i := 0; i < k; i++ {
		end := len(a)
		if i < len(between) {
			end = between[i]
		}
		if end < start {
			end = start
		}
		if end > len(a) {
			end = len(a)
		}
		parts[i] = a[start:end]
		start = end
	}
	return parts
}
