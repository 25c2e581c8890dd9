package status

// ErrorCode classifies API errors in a stable numeric way.
type ErrorCode int

// Reserved ranges by domain:
//   1000-1999: ingest / document store
//   2000-2999: retrieval + answering
//   3000-3999: access control
//   4000-4999: learning (mastery, plan, progress)
//   5000-5999: auto-learning (miner, trainer, models)
//   9000-9999: generic internal

const (
	IngestMissingParams ErrorCode = 1000 + iota
	IngestInvalidGrade
	IngestEmptyDocument
	IngestFailed
)

const (
	AskMissingParams ErrorCode = 2000 + iota
	AskCollectionNotFound
	AskDimensionMismatch
	AskPromptTooLarge
	AskAllProvidersFailed
	AskRateLimited
)

const (
	AccessGradeDenied ErrorCode = 3000 + iota
	AccessRoleDenied
)

const (
	LearnMissingParams ErrorCode = 4000 + iota
	LearnScoreOutOfRange
	LearnUnknownTopic
	LearnNoMastery
)

const (
	TrainInsufficientData ErrorCode = 5000 + iota
	TrainJobActive
	TrainJobNotFound
	TrainInvalidTransition
	TrainUnknownModel
)

const (
	ErrorCodeInternal ErrorCode = 9000
)

// CodedError is an error carrying a stable ErrorCode.
type CodedError interface {
	error
	ErrorCode() ErrorCode
}

type codedError struct {
	code ErrorCode
	err  error
}

func (e codedError) Error() string        { return e.err.Error() }
func (e codedError) Unwrap() error        { return e.err }
func (e codedError) ErrorCode() ErrorCode { return e.code }

// New wraps err with the given code.
func New(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return codedError{code: code, err: err}
}
