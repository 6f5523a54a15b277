// Package badger implements a persistent answer cache on top of BadgerDB.
//
// Answers are keyed by a digest of everything that determines them: the
// program text, the register file, the output register, the selection
// policy and the target value. Callers are expected to re-verify a cached
// answer against the program before trusting it.
package badger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/alu"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no answer is cached for a key.
var ErrNotFound = errors.New("alu/badger: answer not found")

// keyPrefix namespaces answer entries within the database.
var keyPrefix = []byte("answer/")

// Config holds configuration for the underlying BadgerDB instance.
type Config struct {
	// Directory for database files. Ignored when InMemory is true.
	Path string

	// Keeps all data in memory. Used by tests.
	InMemory bool

	// Sync every write to disk before returning.
	SyncWrites bool

	// Entries expire after TTL. Zero keeps entries forever.
	TTL time.Duration

	// Receives BadgerDB's internal log output. Disabled if nil.
	Logger *zap.Logger
}

// DefaultConfig returns the configuration for a persistent cache at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns the configuration for a throwaway cache.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Cache stores solved answers.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens the cache described by cfg. The caller must call Close.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("alu/badger: path required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&logger{cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open answer cache: %w", err)
	}
	return &Cache{db: db, ttl: cfg.TTL}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached answer for key. Returns ErrNotFound on a miss.
func (c *Cache) Get(key Key) (*alu.Answer, error) {
	var answer alu.Answer
	if err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.bytes())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshalAnswer(val, &answer)
		})
	}); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Put stores answer under key, replacing any previous answer.
func (c *Cache) Put(key Key, answer *alu.Answer) error {
	buf, err := marshalAnswer(answer)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key.bytes(), buf)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes the answer stored under key, if any.
func (c *Cache) Delete(key Key) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key.bytes())
	})
}

// Len returns the number of cached answers.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix

		itr := txn.NewIterator(opts)
		defer itr.Close()
		for itr.Rewind(); itr.Valid(); itr.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Key identifies a single solved query.
type Key struct {
	Program   []byte
	Registers []string
	Output    string
	Policy    string
	Target    int64
}

// bytes returns the database key: the prefix followed by a SHA-256 digest
// of every field. Strings are length-prefixed so fields cannot run together.
func (k Key) bytes() []byte {
	h := sha256.New()
	writeField := func(b []byte) {
		var n [binary.MaxVarintLen64]byte
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(b)))])
		h.Write(b)
	}

	writeField(k.Program)
	writeField([]byte(k.Output))
	writeField([]byte(k.Policy))
	for _, name := range k.Registers {
		writeField([]byte(name))
	}

	var target [8]byte
	binary.BigEndian.PutUint64(target[:], uint64(k.Target))
	h.Write(target[:])

	return append(append([]byte(nil), keyPrefix...), h.Sum(nil)...)
}

// answerJSON is the stored encoding of an answer.
type answerJSON struct {
	Digits string `json:"digits"`
	Value  int64  `json:"value"`
	Policy string `json:"policy"`
}

func marshalAnswer(answer *alu.Answer) ([]byte, error) {
	return json.Marshal(answerJSON{
		Digits: answer.String(),
		Value:  answer.Value,
		Policy: answer.Policy,
	})
}

func unmarshalAnswer(data []byte, answer *alu.Answer) error {
	var v answerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode cached answer: %w", err)
	}

	digits, err := alu.ParseDigits(v.Digits)
	if err != nil {
		return fmt.Errorf("decode cached answer: %w", err)
	}
	*answer = alu.Answer{Digits: digits, Value: v.Value, Policy: v.Policy}
	return nil
}

// logger adapts zap to BadgerDB's Logger interface.
type logger struct {
	*zap.SugaredLogger
}

func (l *logger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
