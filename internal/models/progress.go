package models

// Stage names the pipeline step a progress update belongs to
type Stage string

const (
	StageCatalog  Stage = "catalog"
	StageSchedule Stage = "schedule"
)

// Progress reports how many units of a stage have completed
type Progress struct {
	RunID string `json:"run_id,omitempty"`
	Stage Stage  `json:"stage"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}
