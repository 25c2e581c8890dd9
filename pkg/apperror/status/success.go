package status

type SuccessCode int

const (
	OK SuccessCode = 200
	// Accepted marks work handed off to a background task.
	Accepted SuccessCode = 202
)
