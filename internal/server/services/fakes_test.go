package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/common"
	"github.com/dmitrijs2005/cartkeeper/internal/dbx"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	cartsrepo "github.com/dmitrijs2005/cartkeeper/internal/server/repositories/carts"
	usersrepo "github.com/dmitrijs2005/cartkeeper/internal/server/repositories/users"
)

// memUsers is an in-memory users.Repository with the same refresh-token
// semantics as the Postgres one.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int

	// injected failures
	getErr    error
	setErr    error
	rotateErr error
	clearErr  error
	existsErr error

	// called between the read and the CAS in RotateRefreshToken
	beforeRotate func()
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	m.nextID++
	c := *u
	c.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.PurchaseHistory = []string{}
	m.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memUsers) SetRefreshToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshToken = &token
	return nil
}

func (m *memUsers) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error {
	if m.beforeRotate != nil {
		m.beforeRotate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rotateErr != nil {
		return m.rotateErr
	}
	u, ok := m.byID[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return common.ErrorStaleRefreshToken
	}
	u.RefreshToken = &newToken
	return nil
}

func (m *memUsers) ClearRefreshToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	if u, ok := m.byID[id]; ok {
		u.RefreshToken = nil
	}
	return nil
}

func (m *memUsers) stored(id string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].RefreshToken
}

// fakeCarts records calls; carts get sequential ids.
type fakeCarts struct {
	created  []*models.Cart
	history  map[string][]string
	listOut  []*models.Cart
	createEr error
	appendEr error
	listErr  error
}

func (f *fakeCarts) Create(ctx context.Context, c *models.Cart) (*models.Cart, error) {
	if f.createEr != nil {
		return nil, f.createEr
	}
	c.ID = fmt.Sprintf("cart-%d", len(f.created)+1)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeCarts) AppendHistory(ctx context.Context, userID, cartID string) error {
	if f.appendEr != nil {
		return f.appendEr
	}
	if f.history == nil {
		f.history = map[string][]string{}
	}
	f.history[userID] = append(f.history[userID], cartID)
	return nil
}

func (f *fakeCarts) ListHistory(ctx context.Context, userID string) ([]*models.Cart, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

type fakeRepoManager struct {
	u usersrepo.Repository
	c cartsrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Carts(db dbx.DBTX) cartsrepo.Repository       { return m.c }

// plainHasher keeps tests fast; "h:" marks a digest.
type plainHasher struct {
	hashErr   error
	verifyErr error
	calls     int
}

func (h *plainHasher) Hash(password string) (string, error) {
	h.calls++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "h:" + password, nil
}

func (h *plainHasher) Verify(password, digest string) (bool, error) {
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	if !strings.HasPrefix(digest, "h:") {
		return false, errors.New("malformed digest")
	}
	return digest == "h:"+password, nil
}

// stubImages rewrites refs with a prefix.
type stubImages struct {
	err error
}

func (s stubImages) Resolve(ctx context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "resolved:" + ref, nil
}
