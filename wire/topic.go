package wire

import "strings"

// TopicMatches reports whether an AMQP topic-exchange binding pattern
// matches a routing key, supporting the "*" (exactly one word) and "#"
// (zero or more words) wildcards. A client core does not perform broker
// routing, but embedding this against an in-process broker (as the
// teacher's own test suite does) benefits from pre-filtering deliveries
// without waiting on a round trip.
func TopicMatches(pattern, routingKey string) bool {
	if pattern == "" {
		return routingKey == ""
	}
	if pattern == "#" {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	var routingParts []string
	if routingKey != "" {
		routingParts = strings.Split(routingKey, ".")
	}

	return matchTopicParts(patternParts, routingParts)
}

func matchTopicParts(patternParts, routingParts []string) bool {
	type state struct{ pi, ri int }
	stack := []state{{0, 0}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pi, ri := cur.pi, cur.ri

		if pi >= len(patternParts) && ri >= len(routingParts) {
			return true
		}
		if pi >= len(patternParts) {
			continue
		}
		if ri >= len(routingParts) {
			allHash := true
			for i := pi; i < len(patternParts); i++ {
				if patternParts[i] != "#" {
					allHash = false
					break
				}
			}
			if allHash {
				return true
			}
			continue
		}

		switch patternParts[pi] {
		case "#":
			for i := len(routingParts); i >= ri; i-- {
				stack = append(stack, state{pi + 1, i})
			}
		case "*":
			stack = append(stack, state{pi + 1, ri + 1})
		default:
			if patternParts[pi] == routingParts[ri] {
				stack = append(stack, state{pi + 1, ri + 1})
			}
		}
	}
	return false
}
