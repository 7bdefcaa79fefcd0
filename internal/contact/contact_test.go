package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

type recordingNotifier struct {
	got []Submission
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, s Submission) error {
	n.got = append(n.got, s)
	return n.err
}

var fixedNow = time.Date(2026, 1, 8, 10, 0, 0, 0, time.UTC)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want []FieldError
	}{
		{
			name: "valid",
			form: Form{Name: "Jean", Email: "jean@test.fr", Subject: "Bonjour", Message: "Salut"},
		},
		{
			name: "blank name",
			form: Form{Name: "   ", Email: "jean@test.fr", Message: "Salut"},
			want: []FieldError{{FieldName, MsgNameRequired}},
		},
		{
			name: "missing email",
			form: Form{Name: "Jean", Email: " ", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailRequired}},
		},
		{
			name: "malformed email",
			form: Form{Name: "Jean", Email: "not-an-email", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "email without dot",
			form: Form{Name: "Jean", Email: "jean@test", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "email with space",
			form: Form{Name: "Jean", Email: "je an@test.fr", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "email with no-break space",
			form: Form{Name: "Jean", Email: "jean\u00a0x@test.fr", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "email with vertical tab",
			form: Form{Name: "Jean", Email: "jean\vx@test.fr", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "email with em space in domain",
			form: Form{Name: "Jean", Email: "jean@te\u2003st.fr", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "email with byte order mark",
			form: Form{Name: "Jean", Email: "jean@test.f\ufeffr", Message: "Salut"},
			want: []FieldError{{FieldEmail, MsgEmailInvalid}},
		},
		{
			name: "accented email accepted",
			form: Form{Name: "Jean", Email: "jérôme@exemple.fr", Message: "Salut"},
		},
		{
			name: "message too short",
			form: Form{Name: "Jean", Email: "jean@test.fr", Message: " a "},
			want: []FieldError{{FieldMessage, MsgTooShort}},
		},
		{
			name: "subject makes up for short message",
			form: Form{Name: "Jean", Email: "jean@test.fr", Subject: "x", Message: "y"},
		},
		{
			name: "accented runes count once",
			form: Form{Name: "Jean", Email: "jean@test.fr", Message: "é"},
			want: []FieldError{{FieldMessage, MsgTooShort}},
		},
		{
			name: "everything wrong",
			form: Form{},
			want: []FieldError{
				{FieldName, MsgNameRequired},
				{FieldEmail, MsgEmailRequired},
				{FieldMessage, MsgTooShort},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.form))
		})
	}
}

func TestInvalidFlagsOnlyNamedFields(t *testing.T) {
	flags := Invalid([]FieldError{{FieldEmail, MsgEmailInvalid}})

	assert.Equal(t, map[string]bool{FieldName: false, FieldEmail: true, FieldMessage: false}, flags)
}

func TestMessages(t *testing.T) {
	lines := Messages([]FieldError{{FieldName, MsgNameRequired}, {FieldMessage, MsgTooShort}})
	assert.Equal(t, []string{MsgNameRequired, MsgTooShort}, lines)
}

func TestSubmitStoresNewestFirst(t *testing.T) {
	kv := newMemKV()
	inbox := NewInbox(kv, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	first, err := inbox.Submit(ctx, "v1", Form{Name: "Ana", Email: "ana@test.fr", Message: "Premier"})
	require.NoError(t, err)
	require.True(t, first.OK())

	res, err := inbox.Submit(ctx, "v1", Form{Name: "Jean", Email: "jean@test.fr", Subject: "Bonjour", Message: "Salut"})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Submissions, 2)

	got := res.Submissions[0]
	assert.Equal(t, "Jean", got.Name)
	assert.Equal(t, "jean@test.fr", got.Email)
	assert.Equal(t, "Bonjour", got.Subject)
	assert.Equal(t, "Salut", got.Message)
	assert.Equal(t, fixedNow.UnixMilli(), got.Timestamp)
	assert.Equal(t, "Ana", res.Submissions[1].Name)

	var stored []Submission
	require.NoError(t, json.Unmarshal(kv.data[Key("v1")], &stored))
	assert.Equal(t, res.Submissions, stored)
	assert.Contains(t, string(kv.data[Key("v1")]), `"timestamp":`)
}

func TestSubmitRejectedStoresNothing(t *testing.T) {
	kv := newMemKV()
	inbox := NewInbox(kv, zap.NewNop())

	res, err := inbox.Submit(context.Background(), "v1", Form{Name: "Jean", Email: "not-an-email", Message: "Salut"})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Contains(t, Messages(res.Errors), MsgEmailInvalid)
	assert.Empty(t, res.Submissions)
	assert.Empty(t, kv.data)
}

func TestVisitorsHaveSeparateLists(t *testing.T) {
	inbox := NewInbox(newMemKV(), zap.NewNop())
	ctx := context.Background()

	_, err := inbox.Submit(ctx, "v1", Form{Name: "Jean", Email: "jean@test.fr", Message: "Salut"})
	require.NoError(t, err)

	other, err := inbox.List(ctx, "v2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSubmitStorageError(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("disk full")
	inbox := NewInbox(kv, zap.NewNop())

	_, err := inbox.Submit(context.Background(), "v1", Form{Name: "Jean", Email: "jean@test.fr", Message: "Salut"})
	assert.ErrorIs(t, err, kv.err)
}

func TestNotifierFailureDoesNotFailSubmit(t *testing.T) {
	n := &recordingNotifier{err: errors.New("relay down")}
	inbox := NewInbox(newMemKV(), zap.NewNop(), WithNotifier(n))

	res, err := inbox.Submit(context.Background(), "v1", Form{Name: "Jean", Email: "jean@test.fr", Message: "Salut"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, n.got, 1)
	assert.Equal(t, "Jean", n.got[0].Name)
}

func TestMailerNotify(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: "587", User: "me@example.com", Pass: "secret", To: "owner@example.com"}, zap.NewNop())
	var addr string
	var msg []byte
	m.send = func(a string, _ smtp.Auth, from string, to []string, body []byte) error {
		addr, msg = a, body
		assert.Equal(t, "me@example.com", from)
		assert.Equal(t, []string{"owner@example.com"}, to)
		return nil
	}

	err := m.Notify(context.Background(), Submission{Name: "Jean", Email: "jean@test.fr", Subject: "Bonjour", Message: "Salut"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.True(t, strings.HasPrefix(string(msg), "To: owner@example.com\r\n"))
	assert.Contains(t, string(msg), "Reply-To: jean@test.fr")
	assert.Contains(t, string(msg), "Subject: Portfolio Contact: Jean")
}

func TestMailerWithoutCredentials(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: "587"}, zap.NewNop())
	assert.False(t, m.Configured())
	assert.Error(t, m.Notify(context.Background(), Submission{}))
}

func TestSortNewestFirst(t *testing.T) {
	subs := []Submission{{Name: "a", Timestamp: 1}, {Name: "b", Timestamp: 3}, {Name: "c", Timestamp: 2}}
	SortNewestFirst(subs)
	assert.Equal(t, "b", subs[0].Name)
	assert.Equal(t, "c", subs[1].Name)
	assert.Equal(t, "a", subs[2].Name)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)
}

func TestMailerNotifyGivesUpWithContext(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: "587", User: "me@example.com", Pass: "secret", To: "owner@example.com"}, zap.NewNop())
	release := make(chan struct{})
	defer close(release)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Notify(ctx, Submission{Name: "Jean", Email: "jean@test.fr", Message: "Salut"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
