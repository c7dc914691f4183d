// Package diagnostics persists command traces, completions, and invariant
// violations from a running Controller into a SQLite database, for
// after-the-fact inspection with any SQL client. It is a host-side
// observer: a Sink is wired in as a hooking.Hook and never called from
// inside Controller.Tick directly.
package diagnostics

import (
	"database/sql"
	"fmt"
	"os"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/swmemsim/memctrl"
	"github.com/swmemsim/memctrl/internal/refresh"
	"github.com/swmemsim/memctrl/internal/scheduler"
	"github.com/swmemsim/memctrl/sim/hooking"
)

type commandEvent struct {
	cycle   uint64
	bank    uint32
	kind    string
	address uint64
}

type completionEvent struct {
	cycle        uint64
	requestID    uint64
	kind         string
	latency      uint64
	pageHit      bool
	pageConflict bool
}

type refreshEvent struct {
	cycle     uint64
	bankCount int
}

type violationEvent struct {
	cycle       uint64
	invariantID string
	message     string
	channel     uint16
	bank        uint16
}

// Sink is a batched SQLite writer for one controller's diagnostic trace.
type Sink struct {
	*sql.DB

	dbName    string
	batchSize int

	commandStmt    *sql.Stmt
	completionStmt *sql.Stmt
	refreshStmt    *sql.Stmt
	violationStmt  *sql.Stmt

	commands    []commandEvent
	completions []completionEvent
	refreshes   []refreshEvent
	violations  []violationEvent
}

// NewSink creates a Sink writing to a SQLite file rooted at path (a ".sqlite3"
// suffix and a unique run ID are appended). It registers an atexit hook that
// flushes any buffered events on process exit, so a caller that forgets to
// call Close still gets a durable trace.
func NewSink(path string) *Sink {
	s := &Sink{dbName: path, batchSize: 10000}
	atexit.Register(func() { s.Flush() })
	return s
}

// Init opens the database, creates its schema, and prepares statements. It
// must be called once before the Sink is registered as a hook.
func (s *Sink) Init() error {
	filename := s.dbName + "-" + xid.New().String() + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("diagnostics: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("diagnostics: open %s: %w", filename, err)
	}
	s.DB = db

	if err := s.createSchema(); err != nil {
		return err
	}
	return s.prepareStatements()
}

func (s *Sink) createSchema() error {
	statements := []string{
		`CREATE TABLE command (
			cycle   INTEGER NOT NULL,
			bank    INTEGER NOT NULL,
			kind    VARCHAR(16) NOT NULL,
			address INTEGER NOT NULL
		)`,
		`CREATE TABLE completion (
			cycle         INTEGER NOT NULL,
			request_id    INTEGER NOT NULL,
			kind          VARCHAR(16) NOT NULL,
			latency       INTEGER NOT NULL,
			page_hit      BOOLEAN NOT NULL,
			page_conflict BOOLEAN NOT NULL
		)`,
		`CREATE TABLE refresh (
			cycle      INTEGER NOT NULL,
			bank_count INTEGER NOT NULL
		)`,
		`CREATE TABLE violation (
			cycle        INTEGER NOT NULL,
			invariant_id VARCHAR(64) NOT NULL,
			message      VARCHAR(256) NOT NULL,
			channel      INTEGER NOT NULL,
			bank         INTEGER NOT NULL
		)`,
		`CREATE INDEX command_cycle_index ON command (cycle)`,
		`CREATE INDEX completion_cycle_index ON completion (cycle)`,
	}
	for _, stmt := range statements {
		if _, err := s.Exec(stmt); err != nil {
			return fmt.Errorf("diagnostics: create schema: %w", err)
		}
	}
	return nil
}

func (s *Sink) prepareStatements() error {
	var err error
	if s.commandStmt, err = s.Prepare(`INSERT INTO command VALUES (?, ?, ?, ?)`); err != nil {
		return err
	}
	if s.completionStmt, err = s.Prepare(`INSERT INTO completion VALUES (?, ?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	if s.refreshStmt, err = s.Prepare(`INSERT INTO refresh VALUES (?, ?)`); err != nil {
		return err
	}
	if s.violationStmt, err = s.Prepare(`INSERT INTO violation VALUES (?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	return nil
}

// Func implements hooking.Hook, dispatching on the position a Controller
// invoked the hook at.
func (s *Sink) Func(ctx hooking.Ctx) {
	c, ok := ctx.Domain.(*memctrl.Controller)
	if !ok {
		return
	}

	switch ctx.Pos {
	case hooking.PosCommandIssue:
		s.recordCommand(c, ctx)
	case hooking.PosRequestComplete:
		s.recordCompletion(c, ctx)
	case hooking.PosRefreshIssue:
		s.recordRefresh(c, ctx)
	case hooking.PosViolationLogged:
		s.recordViolation(ctx)
	}
}

func (s *Sink) recordCommand(c *memctrl.Controller, ctx hooking.Ctx) {
	e, ok := ctx.Item.(scheduler.Entry)
	if !ok {
		return
	}
	kind := "READ"
	if e.Kind == scheduler.Write {
		kind = "WRITE"
	}
	s.commands = append(s.commands, commandEvent{
		cycle:   uint64(c.Cycle()),
		bank:    e.Bank,
		kind:    kind,
		address: e.Address,
	})
	if len(s.commands) >= s.batchSize {
		s.flushCommands()
	}
}

func (s *Sink) recordCompletion(c *memctrl.Controller, ctx hooking.Ctx) {
	req, ok := ctx.Item.(*memctrl.Request)
	if !ok {
		return
	}
	detail, _ := ctx.Detail.(memctrl.CompletionDetail)
	s.completions = append(s.completions, completionEvent{
		cycle:        uint64(c.Cycle()),
		requestID:    uint64(req.ID),
		kind:         req.Kind.String(),
		latency:      detail.Latency,
		pageHit:      detail.PageHit,
		pageConflict: detail.PageConflict,
	})
	if len(s.completions) >= s.batchSize {
		s.flushCompletions()
	}
}

func (s *Sink) recordRefresh(c *memctrl.Controller, ctx hooking.Ctx) {
	group, ok := ctx.Item.([]refresh.BankID)
	if !ok {
		return
	}
	s.refreshes = append(s.refreshes, refreshEvent{cycle: uint64(c.Cycle()), bankCount: len(group)})
	if len(s.refreshes) >= s.batchSize {
		s.flushRefreshes()
	}
}

func (s *Sink) recordViolation(ctx hooking.Ctx) {
	v, ok := ctx.Item.(memctrl.Violation)
	if !ok {
		return
	}
	s.violations = append(s.violations, violationEvent{
		cycle:       uint64(v.Cycle),
		invariantID: v.InvariantID,
		message:     v.Message,
		channel:     v.Channel,
		bank:        v.Bank,
	})
	if len(s.violations) >= s.batchSize {
		s.flushViolations()
	}
}

// Flush writes every buffered event to the database.
func (s *Sink) Flush() {
	s.flushCommands()
	s.flushCompletions()
	s.flushRefreshes()
	s.flushViolations()
}

func (s *Sink) flushCommands() {
	if len(s.commands) == 0 || s.commandStmt == nil {
		return
	}
	s.withTransaction(func() {
		for _, e := range s.commands {
			if _, err := s.commandStmt.Exec(e.cycle, e.bank, e.kind, e.address); err != nil {
				panic(fmt.Errorf("diagnostics: insert command: %w", err))
			}
		}
	})
	s.commands = nil
}

func (s *Sink) flushCompletions() {
	if len(s.completions) == 0 || s.completionStmt == nil {
		return
	}
	s.withTransaction(func() {
		for _, e := range s.completions {
			if _, err := s.completionStmt.Exec(e.cycle, e.requestID, e.kind, e.latency, e.pageHit, e.pageConflict); err != nil {
				panic(fmt.Errorf("diagnostics: insert completion: %w", err))
			}
		}
	})
	s.completions = nil
}

func (s *Sink) flushRefreshes() {
	if len(s.refreshes) == 0 || s.refreshStmt == nil {
		return
	}
	s.withTransaction(func() {
		for _, e := range s.refreshes {
			if _, err := s.refreshStmt.Exec(e.cycle, e.bankCount); err != nil {
				panic(fmt.Errorf("diagnostics: insert refresh: %w", err))
			}
		}
	})
	s.refreshes = nil
}

func (s *Sink) flushViolations() {
	if len(s.violations) == 0 || s.violationStmt == nil {
		return
	}
	s.withTransaction(func() {
		for _, e := range s.violations {
			if _, err := s.violationStmt.Exec(e.cycle, e.invariantID, e.message, e.channel, e.bank); err != nil {
				panic(fmt.Errorf("diagnostics: insert violation: %w", err))
			}
		}
	})
	s.violations = nil
}

func (s *Sink) withTransaction(body func()) {
	if _, err := s.Exec("BEGIN TRANSACTION"); err != nil {
		panic(fmt.Errorf("diagnostics: begin transaction: %w", err))
	}
	body()
	if _, err := s.Exec("COMMIT TRANSACTION"); err != nil {
		panic(fmt.Errorf("diagnostics: commit transaction: %w", err))
	}
}

// Close flushes remaining events and closes the underlying database.
func (s *Sink) Close() error {
	s.Flush()
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

