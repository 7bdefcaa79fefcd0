package contact

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// notifyTimeout bounds how long a submission waits on its notification.
const notifyTimeout = 5 * time.Second

// KeyPrefix starts the storage key of every visitor's submission list.
const KeyPrefix = "portfolio_contact_messages"

// KV is the storage the inbox persists to.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Notifier is told about every stored submission.
type Notifier interface {
	Notify(ctx context.Context, s Submission) error
}

// Inbox stores submissions newest first, one list per visitor, each list
// serialized as a single JSON array.
type Inbox struct {
	kv       KV
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.Mutex
}

type Option func(*Inbox)

// WithNotifier sends a notification after each stored submission.
func WithNotifier(n Notifier) Option {
	return func(i *Inbox) { i.notifier = n }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Inbox) { i.now = now }
}

func NewInbox(kv KV, logger *zap.Logger, opts ...Option) *Inbox {
	i := &Inbox{kv: kv, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Key returns the storage key of a visitor's submissions.
func Key(visitor string) string {
	return KeyPrefix + ":" + visitor
}

// List returns a visitor's submissions, newest first.
func (i *Inbox) List(ctx context.Context, visitor string) ([]Submission, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.load(ctx, visitor)
}

func (i *Inbox) load(ctx context.Context, visitor string) ([]Submission, error) {
	raw, ok, err := i.kv.Get(ctx, Key(visitor))
	if err != nil {
		return nil, fmt.Errorf("loading submissions: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return Decode(raw)
}

// Decode parses a stored submission list.
func Decode(raw []byte) ([]Submission, error) {
	var subs []Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("decoding submissions: %w", err)
	}
	return subs, nil
}

// SortNewestFirst orders submissions by timestamp, newest first.
func SortNewestFirst(subs []Submission) {
	slices.SortStableFunc(subs, func(a, b Submission) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}

// Result is the outcome of a Submit call. Errors is non-empty when the
// form was rejected; Submissions is the visitor's list afterwards.
type Result struct {
	Errors      []FieldError
	Submissions []Submission
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

// Submit validates f and, when valid, prepends it to the visitor's list
// and persists the whole list.
func (i *Inbox) Submit(ctx context.Context, visitor string, f Form) (Result, error) {
	if errs := Validate(f); len(errs) > 0 {
		subs, err := i.List(ctx, visitor)
		if err != nil {
			return Result{}, err
		}
		return Result{Errors: errs, Submissions: subs}, nil
	}

	entry := Submission{
		Name:      f.Name,
		Email:     f.Email,
		Subject:   f.Subject,
		Message:   f.Message,
		Timestamp: i.now().UnixMilli(),
	}

	i.mu.Lock()
	subs, err := i.load(ctx, visitor)
	if err != nil {
		i.mu.Unlock()
		return Result{}, err
	}
	subs = append([]Submission{entry}, subs...)
	raw, err := json.Marshal(subs)
	if err == nil {
		err = i.kv.Put(ctx, Key(visitor), raw)
	}
	i.mu.Unlock()
	if err != nil {
		return Result{}, fmt.Errorf("storing submission: %w", err)
	}

	if i.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		err := i.notifier.Notify(nctx, entry)
		cancel()
		if err != nil {
			i.logger.Warn("contact notification failed", zap.String("email", entry.Email), zap.Error(err))
		}
	}

	return Result{Submissions: subs}, nil
}
