package request

type SubmitHarvestRequest struct {
	Target string `json:"target"`
	Count  int    `json:"count"` // optional, defaults to POSTS_COUNT
}
