package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"nations.ai/internal/protocol"
)

// SchemaVersion is stored in meta.schema_version.
const SchemaVersion = 1

// SQLiteIndex records planner runs and their schedules. Writes are queued to
// a single writer goroutine and committed in batches; the event log stays the
// source of truth, so a full queue drops rows instead of stalling the search.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRun      atomic.Uint64
	dropFinish   atomic.Uint64
	dropSchedule atomic.Uint64
}

type reqKind int

const (
	reqRunStart reqKind = iota + 1
	reqRunFinish
	reqSchedule
)

type req struct {
	kind reqKind

	start    RunStart
	finish   RunFinish
	schedule ScheduleRecord
}

// RunStart is written when a search or schedule run begins.
type RunStart struct {
	RunID       string
	Mode        string
	SelfCountry string
	StartedAt   time.Time
	WorldDigest string
	Params      protocol.SearchParams
}

// RunFinish completes the runs row written by RunStart.
type RunFinish struct {
	RunID      string
	FinishedAt time.Time
	BestEU     float64
	Popped     int
	Expanded   int
}

// ScheduleRecord is one ranked schedule of a run. Rank starts at 1.
type ScheduleRecord struct {
	RunID       string
	Rank        int
	Actions     []string
	StepEUs     []float64
	FinalEU     float64
	FinalDigest string
}

// Stats reports queue pressure.
type Stats struct {
	QueueDepth    int
	QueueCapacity int

	DropRunTotal      uint64
	DropFinishTotal   uint64
	DropScheduleTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 4096)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty db path", protocol.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA temp_store=MEMORY;`,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			self_country TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			params_json TEXT NOT NULL,
			best_eu REAL,
			popped INTEGER,
			expanded INTEGER,
			world_digest TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS schedules (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			actions TEXT NOT NULL,
			step_eus TEXT NOT NULL,
			final_eu REAL NOT NULL,
			final_digest TEXT NOT NULL,
			PRIMARY KEY(run_id, rank),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + strconv.Itoa(SchemaVersion) + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordRunStart(r RunStart) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqRunStart, start: r}:
	default:
		s.dropRun.Add(1)
	}
}

func (s *SQLiteIndex) RecordRunFinish(r RunFinish) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqRunFinish, finish: r}:
	default:
		s.dropFinish.Add(1)
	}
}

func (s *SQLiteIndex) RecordSchedule(r ScheduleRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSchedule, schedule: r}:
	default:
		s.dropSchedule.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRunTotal:      s.dropRun.Load(),
		DropFinishTotal:   s.dropFinish.Load(),
		DropScheduleTotal: s.dropSchedule.Load(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func joinEUs(eus []float64) string {
	parts := make([]string, len(eus))
	for i, u := range eus {
		parts[i] = strconv.FormatFloat(u, 'f', 4, 64)
	}
	return strings.Join(parts, protocol.EUSep)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,mode,self_country,started_at,params_json,world_digest) VALUES(?,?,?,?,?,?)`)
	finishRun, _ := s.db.Prepare(`UPDATE runs SET finished_at=?, best_eu=?, popped=?, expanded=? WHERE run_id=?`)
	insertSchedule, _ := s.db.Prepare(`INSERT OR REPLACE INTO schedules(run_id,rank,actions,step_eus,final_eu,final_digest) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, finishRun, insertSchedule} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRunStart:
			st := r.start
			params, _ := json.Marshal(st.Params)
			exec(insertRun, st.RunID, st.Mode, st.SelfCountry, formatTime(st.StartedAt), string(params), st.WorldDigest)

		case reqRunFinish:
			f := r.finish
			exec(finishRun, formatTime(f.FinishedAt), f.BestEU, f.Popped, f.Expanded, f.RunID)

		case reqSchedule:
			sc := r.schedule
			exec(insertSchedule, sc.RunID, sc.Rank, strings.Join(sc.Actions, protocol.ActionSep), joinEUs(sc.StepEUs), sc.FinalEU, sc.FinalDigest)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
