// Package session holds the delegate directory and the single active
// session binding.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/et-mohedano/demo-delegados/pkg/config"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
)

const sessionTokenBytes = 32

var (
	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password, so a failed login leaks nothing about which it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnassignedRegion is returned when the directory assigns a user to
	// a region the index does not hold. Fatal to that login, not the process.
	ErrUnassignedRegion = errors.New("assigned region not found")
)

// User is one directory entry. Only the bcrypt hash of the password is
// retained after load.
type User struct {
	Username       string
	DisplayName    string
	AssignedRegion string
	passwordHash   []byte
}

// Directory is the static username→delegate mapping, populated once at
// startup and immutable afterwards. Usernames match case-insensitively.
type Directory struct {
	users map[string]User
}

// NewDirectory builds the directory from config, hashing every password.
func NewDirectory(
	log logrus.FieldLogger, users []config.UserConfig,
) (*Directory, error) {
	d := &Directory{users: make(map[string]User, len(users))}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword(
			[]byte(u.Password), bcrypt.DefaultCost,
		)
		if err != nil {
			return nil, fmt.Errorf("hashing password for %s: %w", u.Username, err)
		}

		username := strings.ToLower(strings.TrimSpace(u.Username))

		display := u.DisplayName
		if display == "" {
			display = u.Username
		}

		d.users[username] = User{
			Username:       username,
			DisplayName:    display,
			AssignedRegion: u.Region,
			passwordHash:   hash,
		}
	}

	log.WithField("component", "directory").
		WithField("users", len(d.users)).
		Info("User directory loaded")

	return d, nil
}

// Binding is the resolved state of an authenticated session.
type Binding struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	AssignedRegion string `json:"assigned_region"`
	Token          string `json:"-"`
}

// Context tracks the single active session. Starting a new session discards
// the previous one; requests carrying the discarded token are rejected.
type Context struct {
	log logrus.FieldLogger
	dir *Directory

	mu     sync.Mutex
	active *Binding
}

// NewContext creates a session context over the given directory.
func NewContext(log logrus.FieldLogger, dir *Directory) *Context {
	return &Context{
		log: log.WithField("component", "session"),
		dir: dir,
	}
}

// Authenticate verifies the credentials and, on success, replaces the active
// session with a fresh binding.
func (c *Context) Authenticate(username, secret string) (Binding, error) {
	u, ok := c.dir.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		// Same error as a wrong password, and a comparable amount of work.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))

		return Binding{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(secret)) != nil {
		return Binding{}, ErrInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return Binding{}, fmt.Errorf("generating session token: %w", err)
	}

	b := Binding{
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		AssignedRegion: u.AssignedRegion,
		Token:          token,
	}

	c.mu.Lock()
	replaced := c.active != nil
	c.active = &b
	c.mu.Unlock()

	c.log.WithField("username", u.Username).
		WithField("replaced_previous", replaced).
		Info("Session started")

	return b, nil
}

// Active returns the current binding, if any.
func (c *Context) Active() (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return Binding{}, false
	}

	return *c.active, true
}

// ActiveByToken returns the current binding when token matches it.
func (c *Context) ActiveByToken(token string) (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || token == "" || c.active.Token != token {
		return Binding{}, false
	}

	return *c.active, true
}

// Clear ends the active session.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = nil
}

// ResolveAssignedGeometry looks up the binding's assigned region geometry.
func ResolveAssignedGeometry(
	b Binding, regions *geo.Index,
) (orb.Geometry, error) {
	g, err := regions.Lookup(b.AssignedRegion)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (user %s)",
			ErrUnassignedRegion, b.AssignedRegion, b.Username)
	}

	return g, nil
}

// dummyHash keeps the unknown-username path from returning measurably
// faster than the wrong-password path.
var dummyHash, _ = bcrypt.GenerateFromPassword(
	[]byte("delegados-dummy"), bcrypt.DefaultCost,
)

// generateSessionToken creates a cryptographically random session token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}

	return hex.EncodeToString(b), nil
}
