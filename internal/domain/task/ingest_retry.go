package task

// IngestRetryTask re-enters a failed ingestion through the retry stream. The
// ingestion itself never retries; failed documents come back this way.
type IngestRetryTask struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	RetryCount int    `json:"retry_count"`
	Error      string `json:"error"` // last failure, for operators
}

func (t *IngestRetryTask) TaskType() string {
	return "IngestRetryTask"
}

func (t *IngestRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
