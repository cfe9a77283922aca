package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/mail"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/repo"
)

// memRepo is an in-memory Repository that also satisfies auth.SessionLookup.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*entity.User
	// failOn makes the named method return errDB.
	failOn string
}

var errDB = errors.New("db down")

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]*entity.User{}}
}

func (m *memRepo) fail(op string) error {
	if m.failOn == op {
		return errDB
	}
	return nil
}

func (m *memRepo) Create(_ context.Context, u *entity.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return 0, err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, userrepo.ErrDuplicateEmail
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	return u.ID, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByEmail"); err != nil {
		return nil, err
	}
	return m.find(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memRepo) GetByIDAndToken(_ context.Context, id int64, token string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *entity.User) bool { return u.ID == id && u.Token != nil && *u.Token == token })
}

func (m *memRepo) GetByVerificationToken(_ context.Context, token string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *entity.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (m *memRepo) SetToken(_ context.Context, id int64, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetToken"); err != nil {
		return err
	}
	if u, ok := m.users[id]; ok {
		u.Token = token
	}
	return nil
}

func (m *memRepo) MarkVerified(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Verify = true
		u.VerificationToken = nil
	}
	return nil
}

func (m *memRepo) SetVerificationToken(_ context.Context, id int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.VerificationToken = &token
	}
	return nil
}

func (m *memRepo) SetSubscription(_ context.Context, id int64, subscription string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	u.Subscription = subscription
	cp := *u
	return &cp, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memRepo) byEmail(email string) *entity.User {
	u, _ := m.GetByEmail(context.Background(), email)
	return u
}

// fakeMailer records messages and fails when err is set.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last() mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return mail.Message{}
	}
	return f.sent[len(f.sent)-1]
}
