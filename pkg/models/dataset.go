package models

// TrainingRow is a FeatureRow joined with buzz and labeled with the
// next-session direction. Rows only exist where the next session is
// observable: the terminal date per ticker is never labeled.
type TrainingRow struct {
	FeatureRow

	Mentions     float64 `json:"mentions"`      // 0 when no buzz observed
	AvgSentiment float64 `json:"avg_sentiment"` // 0 when no buzz observed

	NextRet float64 `json:"next_ret"` // close[t+1]/close[t] - 1
	Y       int     `json:"y"`        // 1 iff NextRet > 0
}

// TrainingFeatureColumns is the model input column set, in matrix order.
var TrainingFeatureColumns = []string{
	"r1", "r5", "r20", "vol20", "rsi14",
	"hi52d_dist", "lo52d_dist",
	"mentions", "avg_sentiment",
}
