package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	sessionBucket = []byte("session")

	tokenKey    = []byte("token")
	usernameKey = []byte("username")
)

// Session is the persisted pair needed to restore a login on startup.
type Session struct {
	Token    string
	Username string
}

// Empty reports whether there is nothing to restore.
func (s Session) Empty() bool {
	return s.Token == "" || s.Username == ""
}

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(sessionBucket)
		return createErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveSession(session Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if err := b.Put(tokenKey, []byte(session.Token)); err != nil {
			return err
		}
		return b.Put(usernameKey, []byte(session.Username))
	})
}

// LoadSession returns the zero Session when nothing has been saved.
func (s *Store) LoadSession() (Session, error) {
	var session Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		session.Token = string(b.Get(tokenKey))
		session.Username = string(b.Get(usernameKey))
		return nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}
	return session, nil
}

// ClearSession drops everything persisted for the session, not only the
// two known keys.
func (s *Store) ClearSession() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(sessionBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(sessionBucket)
		return err
	})
}
