package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.teamchat/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the session database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second

	// tokenExpirySlack is subtracted from the token's exp claim so a token
	// about to expire mid-session is treated as already expired.
	tokenExpirySlack = 30 * time.Second
)

var (
	appBucket = []byte("app")

	tokenKey       = []byte("token")
	userIDKey      = []byte("user_id")
	userNameKey    = []byte("user_name")
	userEmailKey   = []byte("user_email")
	workspaceIDKey = []byte("workspace_id")
	realtimeKey    = []byte("realtime_enabled")
)

// Login is the set of values persisted together after a successful
// authentication and cleared together on logout.
type Login struct {
	Token       string
	UserID      string
	UserName    string
	UserEmail   string
	WorkspaceID string
}

// Store wraps a bbolt database holding the persisted client session.
type Store struct {
	db *bolt.DB
}

func dbPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".teamchat", "session.db")
}

// Load opens the session database at ~/.teamchat/session.db, creating it
// if it does not exist.
func Load() (*Store, error) {
	return LoadAt(dbPath())
}

// LoadAt opens a session database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(appBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the cached bearer token, or empty string.
func (s *Store) Token() string {
	var token string

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(tokenKey)
		if v != nil {
			token = string(v)
		}

		return nil
	})

	return token
}

// Login returns the persisted login values. Missing keys come back as
// empty strings; callers check Token to decide whether a login exists.
func (s *Store) Login() (Login, error) {
	var l Login

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)
		l.Token = string(b.Get(tokenKey))
		l.UserID = string(b.Get(userIDKey))
		l.UserName = string(b.Get(userNameKey))
		l.UserEmail = string(b.Get(userEmailKey))
		l.WorkspaceID = string(b.Get(workspaceIDKey))

		return nil
	})
	if err != nil {
		return Login{}, fmt.Errorf("reading login: %w", err)
	}

	return l, nil
}

// SetLogin persists all login values in a single transaction.
func (s *Store) SetLogin(l Login) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)

		pairs := map[string][]byte{
			string(tokenKey):       []byte(l.Token),
			string(userIDKey):      []byte(l.UserID),
			string(userNameKey):    []byte(l.UserName),
			string(userEmailKey):   []byte(l.UserEmail),
			string(workspaceIDKey): []byte(l.WorkspaceID),
		}
		for key, value := range pairs {
			if err := b.Put([]byte(key), value); err != nil {
				return err
			}
		}

		return nil
	})
}

// Clear removes all login values atomically. The realtime preference is
// deliberately kept; it is a device setting, not an account one.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)

		for _, key := range [][]byte{tokenKey, userIDKey, userNameKey, userEmailKey, workspaceIDKey} {
			if err := b.Delete(key); err != nil {
				return err
			}
		}

		return nil
	})
}

// RealtimeEnabled reports the persisted push-channel preference.
// Defaults to true when never set.
func (s *Store) RealtimeEnabled() bool {
	enabled := true

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(realtimeKey)
		if v != nil {
			enabled = string(v) != "false"
		}

		return nil
	})

	return enabled
}

// SetRealtimeEnabled persists the push-channel preference.
func (s *Store) SetRealtimeEnabled(enabled bool) error {
	value := "true"
	if !enabled {
		value = "false"
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(realtimeKey, []byte(value))
	})
}

// TokenExpired reports whether the bearer token is missing, unparseable,
// or past (or within tokenExpirySlack of) its exp claim. The signature is
// not verified; only the server can do that, and a forged token would be
// rejected there anyway. This check exists to avoid a guaranteed 401
// round trip on startup.
func TokenExpired(token string) bool {
	if token == "" {
		return true
	}

	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return time.Now().Add(tokenExpirySlack).After(exp.Time)
}
