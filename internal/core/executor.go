package core

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gatebot/pkg/ring"
)

// ExecutionState is where an invocation attempt currently stands. Every
// attempt walks Resolving → PermissionCheck → CooldownCheck → Running and
// ends in exactly one terminal state.
type ExecutionState int

const (
	StateResolving ExecutionState = iota
	StatePermissionCheck
	StateCooldownCheck
	StateRunning
	StateSucceeded
	StateDenied
	StateFaulted
)

func (s ExecutionState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StatePermissionCheck:
		return "permission_check"
	case StateCooldownCheck:
		return "cooldown_check"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateDenied:
		return "denied"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result recorded for an attempt.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeDeniedUnknown    Outcome = "denied:unknown_command"
	OutcomeDeniedPermission Outcome = "denied:insufficient_permission"
	OutcomeDeniedCooldown   Outcome = "denied:on_cooldown"
	OutcomeFault            Outcome = "fault"
)

// Denied reports whether the outcome is one of the denial variants.
func (o Outcome) Denied() bool {
	return o == OutcomeDeniedUnknown || o == OutcomeDeniedPermission || o == OutcomeDeniedCooldown
}

// Record is the immutable result of one invocation attempt.
type Record struct {
	Time      time.Time     `json:"time"`
	UserID    string        `json:"user_id"`
	GuildID   string        `json:"guild_id,omitempty"`
	Command   string        `json:"command"`
	Outcome   Outcome       `json:"outcome"`
	Reason    Reason        `json:"reason,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"` // cooldown denials only
	Duration  time.Duration `json:"duration"`
}

// Execution is one in-flight attempt, visible through ActiveExecutions.
type Execution struct {
	ID      int64          `json:"id"`
	Command string         `json:"command"`
	UserID  string         `json:"user_id"`
	GuildID string         `json:"guild_id,omitempty"`
	State   ExecutionState `json:"state"`
	Started time.Time      `json:"started"`
}

// HistoryFilter narrows Executor.History output. Zero values match
// everything.
type HistoryFilter struct {
	UserID  string
	Command string
	Outcome Outcome
	Since   time.Time
	Until   time.Time
}

// Stats are the executor's running counters since startup.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Succeeded  uint64 `json:"succeeded"`
	Denied     uint64 `json:"denied"`
	Faulted    uint64 `json:"faulted"`
}

// Executor runs the admission pipeline and the handler. It owns nothing but
// the bounded history and the in-flight table; registry, permissions and
// cooldowns are consulted through their public contracts.
type Executor struct {
	registry  *Registry
	perms     *PermissionManager
	cooldowns *CooldownManager

	history *ring.Buffer[Record]

	mu     sync.Mutex
	active map[int64]*Execution
	nextID atomic.Int64

	dispatched atomic.Uint64
	succeeded  atomic.Uint64
	denied     atomic.Uint64
	faulted    atomic.Uint64

	now func() time.Time
}

func NewExecutor(registry *Registry, perms *PermissionManager, cooldowns *CooldownManager, historyCapacity int) *Executor {
	return &Executor{
		registry:  registry,
		perms:     perms,
		cooldowns: cooldowns,
		history:   ring.New[Record](historyCapacity),
		active:    make(map[int64]*Execution),
		now:       time.Now,
	}
}

// Dispatch runs one invocation attempt to a terminal state and records it.
// The returned record carries the outcome; Dispatch itself never fails and
// never lets a handler fault escape.
func (e *Executor) Dispatch(ctx *Context, identifier string) Record {
	e.dispatched.Add(1)
	started := e.now()
	ev := ctx.Event

	exec := &Execution{
		ID:      e.nextID.Add(1),
		UserID:  ev.UserID,
		GuildID: ev.GuildID,
		State:   StateResolving,
		Started: started,
	}
	e.trackExecution(exec)
	defer e.untrackExecution(exec.ID)

	// Resolving. The command reference is held for the rest of the attempt;
	// a concurrent unregister only affects later resolves.
	cmd, err := e.registry.Resolve(identifier)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[ERR] executor: resolve %q: %v", identifier, err)
		}
		return e.finish(exec, Record{
			Command: identifier, Outcome: OutcomeDeniedUnknown,
		}, started, ev)
	}
	exec.Command = cmd.Name()

	// PermissionCheck.
	e.setState(exec, StatePermissionCheck)
	if cmd.GuildOnly() && ev.GuildID == "" {
		return e.finish(exec, Record{
			Command: cmd.Name(), Outcome: OutcomeDeniedPermission, Reason: ReasonGuildOnly,
		}, started, ev)
	}
	decision := e.perms.IsAllowed(ev.GuildID, cmd.Name(), ev.RoleIDs, ev.Perms)
	if !decision.Allowed {
		return e.finish(exec, Record{
			Command: cmd.Name(), Outcome: OutcomeDeniedPermission, Reason: decision.Reason,
		}, started, ev)
	}

	// CooldownCheck.
	e.setState(exec, StateCooldownCheck)
	if allowed, remaining := e.cooldowns.CheckAndStart(ev.UserID, cmd.Name(), cmd.Cooldown()); !allowed {
		return e.finish(exec, Record{
			Command: cmd.Name(), Outcome: OutcomeDeniedCooldown, Remaining: remaining,
		}, started, ev)
	}

	// Running. Faults stop here: a broken handler must not take down the
	// dispatcher or concurrent attempts.
	e.setState(exec, StateRunning)
	if err := e.runHandler(cmd, ctx); err != nil {
		log.Printf("[ERR] executor: command %s faulted (user %s, guild %s): %v",
			cmd.Name(), ev.UserID, ev.GuildID, err)
		return e.finish(exec, Record{
			Command: cmd.Name(), Outcome: OutcomeFault,
		}, started, ev)
	}

	return e.finish(exec, Record{
		Command: cmd.Name(), Outcome: OutcomeSuccess,
	}, started, ev)
}

// runHandler isolates the handler invocation; a panic comes back as an
// error.
func (e *Executor) runHandler(cmd Command, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return cmd.Run(ctx)
}

// ActiveExecutions returns a snapshot of in-flight attempts.
func (e *Executor) ActiveExecutions() []Execution {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Execution, 0, len(e.active))
	for _, exec := range e.active {
		out = append(out, *exec)
	}
	return out
}

// History returns recorded attempts matching the filter, oldest first. The
// backing ring never exceeds its configured capacity.
func (e *Executor) History(filter HistoryFilter) []Record {
	var out []Record
	for _, r := range e.history.Snapshot() {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Command != "" && r.Command != filter.Command {
			continue
		}
		if filter.Outcome != "" && r.Outcome != filter.Outcome {
			continue
		}
		if !filter.Since.IsZero() && r.Time.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && r.Time.After(filter.Until) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// HistoryLen returns the number of buffered records.
func (e *Executor) HistoryLen() int {
	return e.history.Len()
}

// Stats returns the running outcome counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Dispatched: e.dispatched.Load(),
		Succeeded:  e.succeeded.Load(),
		Denied:     e.denied.Load(),
		Faulted:    e.faulted.Load(),
	}
}

func (e *Executor) finish(exec *Execution, r Record, started time.Time, ev Event) Record {
	switch r.Outcome {
	case OutcomeSuccess:
		e.setState(exec, StateSucceeded)
		e.succeeded.Add(1)
	case OutcomeFault:
		e.setState(exec, StateFaulted)
		e.faulted.Add(1)
	default:
		e.setState(exec, StateDenied)
		e.denied.Add(1)
	}

	r.Time = started
	r.UserID = ev.UserID
	r.GuildID = ev.GuildID
	r.Duration = e.now().Sub(started)
	e.history.Push(r)
	return r
}

func (e *Executor) trackExecution(exec *Execution) {
	e.mu.Lock()
	e.active[exec.ID] = exec
	e.mu.Unlock()
}

func (e *Executor) untrackExecution(id int64) {
	e.mu.Lock()
	delete(e.active, id)
	e.mu.Unlock()
}

func (e *Executor) setState(exec *Execution, s ExecutionState) {
	e.mu.Lock()
	exec.State = s
	e.mu.Unlock()
}
