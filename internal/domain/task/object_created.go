package task

// ObjectCreatedTask announces a new listing document in the blob store. The
// upstream pipeline (or a bucket notification bridge) publishes one per
// deposited object.
type ObjectCreatedTask struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (t *ObjectCreatedTask) TaskType() string {
	return "ObjectCreatedTask"
}

func (t *ObjectCreatedTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
