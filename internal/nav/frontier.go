package nav

// frontierNode is a pending search entry.
type frontierNode struct {
	idx  int     // Flat fine-grid index (z*fineW + x)
	cost float64 // Accumulated cost from the goal
}

// frontier is a binary min-heap ordered by cost.
// Typed rather than container/heap to avoid interface boxing on every push.
type frontier []frontierNode

func (h *frontier) push(n frontierNode) {
	*h = append(*h, n)
	// Sift up
	i := len(*h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if (*h)[parent].cost <= (*h)[i].cost {
			break
		}
		(*h)[parent], (*h)[i] = (*h)[i], (*h)[parent]
		i = parent
	}
}

func (h *frontier) pop() frontierNode {
	old := *h
	n := len(old)
	top := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]

	// Sift down
	i := 0
	for {
		left := 2*i + 1
		if left >= len(*h) {
			break
		}
		smallest := left
		if right := left + 1; right < len(*h) && (*h)[right].cost < (*h)[left].cost {
			smallest = right
		}
		if (*h)[i].cost <= (*h)[smallest].cost {
			break
		}
		(*h)[i], (*h)[smallest] = (*h)[smallest], (*h)[i]
		i = smallest
	}
	return top
}
