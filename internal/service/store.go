package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

// Store persists catalog, meals, plans and progress. Every read-modify-write
// of a container aggregate runs in one transaction while holding that
// container's lock, so concurrent edits of the same meal or day serialize.
type Store struct {
	db     *sql.DB
	engine *nutrition.Engine
	log    *slog.Logger
	locks  *keyedMutex
	cache  *nutrition.AggregateCache
}

func NewStore(db *sql.DB, engine *nutrition.Engine, logger *slog.Logger) *Store {
	if engine == nil {
		engine = nutrition.New(nutrition.Config{Logger: logger})
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		engine: engine,
		log:    logger,
		locks:  newKeyedMutex(),
		cache:  nutrition.NewAggregateCache(engine),
	}
}

func (s *Store) DB() *sql.DB                      { return s.db }
func (s *Store) Engine() *nutrition.Engine        { return s.engine }
func (s *Store) Cache() *nutrition.AggregateCache { return s.cache }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction. Nothing is committed unless fn returns nil
// and ctx is still live.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mealKey(id int64) string      { return fmt.Sprintf("meal:%d", id) }
func dailyPlanKey(id int64) string { return fmt.Sprintf("daily_plan:%d", id) }
func planKey(id int64) string      { return fmt.Sprintf("plan:%d", id) }

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refLock{}}
}

// lock acquires every key in sorted order and returns the release func.
func (k *keyedMutex) lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	sorted = dedupe(sorted)

	held := make([]*refLock, 0, len(sorted))
	for _, key := range sorted {
		k.mu.Lock()
		l, ok := k.locks[key]
		if !ok {
			l = &refLock{}
			k.locks[key] = l
		}
		l.refs++
		k.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, sorted[i])
			}
			k.mu.Unlock()
		}
	}
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
