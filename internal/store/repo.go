package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for the requested key.
	ErrNotFound = errors.New("store: record not found")

	// ErrExists is returned by Insert when a record with the same id exists.
	ErrExists = errors.New("store: record already exists")

	// ErrConflict is returned by CompareAndSwap when the stored version no
	// longer matches the caller's version.
	ErrConflict = errors.New("store: version conflict")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// SessionRecord is the persisted form of one interview session. Data is an
// opaque JSON document owned by the session package; the remaining columns
// are denormalized for listing.
type SessionRecord struct {
	ID        string
	SubjectID string
	ModuleID  string
	Status    string
	Data      []byte
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows SessionRepo.List results. Zero values match everything.
type ListFilter struct {
	SubjectID string
	ModuleID  string
	Status    string
	Limit     int
}

// SessionRepo is the narrow create/read/compare-and-swap contract every
// session backend implements.
type SessionRepo interface {
	// Insert stores a new record at version 1. Returns ErrExists if the id
	// is taken.
	Insert(ctx context.Context, rec *SessionRecord) error

	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, id string) (*SessionRecord, error)

	// CompareAndSwap replaces the record if its stored version equals
	// rec.Version, then bumps rec.Version. Returns ErrConflict when another
	// writer got there first and ErrNotFound if the record is missing.
	CompareAndSwap(ctx context.Context, rec *SessionRecord) error

	// List returns records ordered by most recently updated.
	List(ctx context.Context, filter ListFilter) ([]SessionRecord, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageStats aggregates LLM usage by purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage aggregates LLM usage by model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// SessionEventData describes one session lifecycle event.
type SessionEventData struct {
	SessionID      string
	Action         string // "created", "turn", "completed", "force-ended"
	QuestionsAsked int
	Detail         string
}

// SessionEventRecord is a stored session lifecycle event.
type SessionEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// EventRepo provides append and query access to the event log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns a single LLM event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)

	// LLMUsageByPurpose aggregates token usage per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)

	// AppendSessionEvent records a session lifecycle event.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// QuerySessionEvents returns the events for one session in sequence order.
	QuerySessionEvents(ctx context.Context, sessionID string) ([]SessionEventRecord, error)
}

// NopEventRepo discards appends and returns empty query results.
type NopEventRepo struct{}

func (NopEventRepo) AppendLLMRequest(context.Context, LLMRequestEventData) error { return nil }
func (NopEventRepo) QueryLLMEvents(context.Context, QueryOpts) ([]LLMRequestEventRecord, error) {
	return nil, nil
}
func (NopEventRepo) GetLLMEvent(context.Context, int) (*LLMRequestEventRecord, error) {
	return nil, nil
}
func (NopEventRepo) LLMUsageByPurpose(context.Context) ([]LLMUsageStats, error) { return nil, nil }
func (NopEventRepo) LLMUsageByModel(context.Context) ([]LLMModelUsage, error)   { return nil, nil }
func (NopEventRepo) AppendSessionEvent(context.Context, SessionEventData) error { return nil }
func (NopEventRepo) QuerySessionEvents(context.Context, string) ([]SessionEventRecord, error) {
	return nil, nil
}
