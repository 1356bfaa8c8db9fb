// AngelaMos | 2026
// progress.go

package course

import (
	"math"
)

// ComputeProgress returns round(completed/total*100), or 0 for an empty
// course. completed is clamped to [0, total].
func ComputeProgress(total, completed int) int {
	if total <= 0 {
		return 0
	}
	completed = min(max(completed, 0), total)
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func summarize(total, completed int) Summary {
	return Summary{
		TotalLessons:       total,
		CompletedLessons:   completed,
		PercentageComplete: ComputeProgress(total, completed),
	}
}
