// Package tables manages the table floor against the backend with
// optimistic concurrency: snapshot, apply locally, then confirm with the
// remote call or restore the snapshot. Merge is all-or-nothing across every
// affected table; split is the one non-optimistic path because the new
// table's id is server-assigned.
package tables

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/api"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"go.uber.org/zap"
)

// Errors returned by the manager.
var (
	ErrTableNotFound   = errors.New("table not found")
	ErrInvalidStatus   = errors.New("invalid table status")
	ErrInvalidCapacity = errors.New("split capacity must be smaller than the table's capacity")
	ErrMergeTooFew     = errors.New("merge needs at least two tables")
	ErrDuplicateTable  = errors.New("duplicate table in merge set")
	ErrUpdateFailed    = errors.New("table update failed")
)

// Backend is the slice of the API client the manager needs.
// Satisfied by *api.Client.
type Backend interface {
	ListTables(ctx context.Context) ([]domain.Table, error)
	CreateTable(ctx context.Context, req api.CreateTableRequest) (domain.Table, error)
	UpdateTable(ctx context.Context, t domain.Table) (domain.Table, error)
}

// Notifier surfaces failed mutations to the user. Implementations must not
// block.
type Notifier interface {
	Notify(message string)
}

// Manager owns the table cache. All mutation goes through its methods so
// the revert guarantees hold.
type Manager struct {
	backend Backend
	notify  Notifier
	log     *zap.Logger

	mu     sync.Mutex
	tables map[uuid.UUID]domain.Table
}

// NewManager creates a Manager. notify and log may be nil.
func NewManager(backend Backend, notify Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		notify:  notify,
		log:     log,
		tables:  make(map[uuid.UUID]domain.Table),
	}
}

// UpdateStatus changes one table's status optimistically.
func (m *Manager) UpdateStatus(ctx context.Context, tableID uuid.UUID, newStatus string) error {
	if !validStatus(newStatus) {
		return ErrInvalidStatus
	}
	return m.updateOne(ctx, tableID, "status change", func(t *domain.Table) {
		t.Status = newStatus
	})
}

// AssignOrder marks a table occupied by the given order, optimistically.
func (m *Manager) AssignOrder(ctx context.Context, tableID, orderID uuid.UUID) error {
	return m.updateOne(ctx, tableID, "order assignment", func(t *domain.Table) {
		t.Status = enum.TableStatusOccupied
		id := orderID
		t.CurrentOrderID = &id
	})
}

// Clear resets a table to cleaning with no order, merge, or split links,
// optimistically.
func (m *Manager) Clear(ctx context.Context, tableID uuid.UUID) error {
	return m.updateOne(ctx, tableID, "table clear", func(t *domain.Table) {
		t.Status = enum.TableStatusCleaning
		t.CurrentOrderID = nil
		t.MergedWith = nil
		t.SplitFrom = nil
	})
}

// updateOne is the snapshot/apply/confirm-or-revert cycle for a single
// table.
func (m *Manager) updateOne(ctx context.Context, tableID uuid.UUID, what string, mutate func(*domain.Table)) error {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	cur, ok := m.tables[tableID]
	if !ok {
		m.mu.Unlock()
		return ErrTableNotFound
	}
	snapshot := cur.Clone()
	work := cur.Clone()
	mutate(&work)
	m.tables[tableID] = work
	m.mu.Unlock()

	confirmed, err := m.backend.UpdateTable(ctx, work)
	if err != nil {
		m.mu.Lock()
		m.rollbackLocked(snapshot)
		m.mu.Unlock()
		m.report(what+" failed, view reverted", err)
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	m.mu.Lock()
	m.applyLocked(confirmed)
	m.mu.Unlock()
	return nil
}

// Merge combines two or more tables. The first id is the surviving table;
// its capacity becomes the sum of all pre-merge capacities and every other
// table points back at it. One remote update is issued per affected table.
// A partial merge is not a valid state: any remote failure rolls back every
// affected table and then refetches authoritative state, because some
// remote rows may already have been written.
func (m *Manager) Merge(ctx context.Context, tableIDs []uuid.UUID) error {
	ctx = context.WithoutCancel(ctx)

	if len(tableIDs) < 2 {
		return ErrMergeTooFew
	}

	m.mu.Lock()
	snapshots := make(map[uuid.UUID]domain.Table, len(tableIDs))
	combined := int32(0)
	for _, id := range tableIDs {
		// A repeated id would double-count capacity and make the survivor
		// point at itself.
		if _, dup := snapshots[id]; dup {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateTable, id)
		}
		t, ok := m.tables[id]
		if !ok {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrTableNotFound, id)
		}
		snapshots[id] = t.Clone()
		combined += t.Capacity
	}

	survivorID := tableIDs[0]
	survivor := snapshots[survivorID].Clone()
	survivor.Capacity = combined
	survivor.Status = enum.TableStatusOccupied
	survivor.MergedWith = append([]uuid.UUID(nil), tableIDs[1:]...)
	m.tables[survivorID] = survivor

	updated := []domain.Table{survivor}
	for _, id := range tableIDs[1:] {
		t := snapshots[id].Clone()
		t.Status = enum.TableStatusOccupied
		t.MergedWith = []uuid.UUID{survivorID}
		m.tables[id] = t
		updated = append(updated, t)
	}
	m.mu.Unlock()

	for _, t := range updated {
		confirmed, err := m.backend.UpdateTable(ctx, t)
		if err != nil {
			// Unconditional restore: rows confirmed earlier in this loop
			// must be reverted too, whatever their timestamps say.
			m.mu.Lock()
			for _, snap := range snapshots {
				m.tables[snap.ID] = snap
			}
			m.mu.Unlock()
			// Some rows may already be written remotely; only a fresh
			// fetch guarantees the view matches the backend again.
			if rerr := m.Refresh(ctx); rerr != nil {
				m.log.Warn("refetch after failed merge", zap.Error(rerr))
			}
			m.report("table merge failed, view reverted", err)
			return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
		m.mu.Lock()
		m.applyLocked(confirmed)
		m.mu.Unlock()
	}
	return nil
}

// Split carves a new table of the given capacity off an existing one. The
// new table's number is max(existing)+1; freed numbers are never reused.
// This path is not optimistic: the new table's id is server-assigned, so
// the local view changes only after both remote calls succeed.
func (m *Manager) Split(ctx context.Context, tableID uuid.UUID, capacity int32) (domain.Table, error) {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	source, ok := m.tables[tableID]
	if !ok {
		m.mu.Unlock()
		return domain.Table{}, ErrTableNotFound
	}
	if capacity < 1 || capacity >= source.Capacity {
		m.mu.Unlock()
		return domain.Table{}, ErrInvalidCapacity
	}
	reduced := source.Clone()
	reduced.Capacity = source.Capacity - capacity
	nextNumber := int32(0)
	for _, t := range m.tables {
		if t.TableNumber > nextNumber {
			nextNumber = t.TableNumber
		}
	}
	nextNumber++
	m.mu.Unlock()

	updatedSource, err := m.backend.UpdateTable(ctx, reduced)
	if err != nil {
		m.report("table split failed", err)
		return domain.Table{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	srcID := tableID
	created, err := m.backend.CreateTable(ctx, api.CreateTableRequest{
		TableNumber: nextNumber,
		Capacity:    capacity,
		Status:      enum.TableStatusAvailable,
		SplitFrom:   &srcID,
	})
	if err != nil {
		// The source row is already reduced remotely; refetch so the view
		// stays derivable from authoritative state.
		if rerr := m.Refresh(ctx); rerr != nil {
			m.log.Warn("refetch after failed split", zap.Error(rerr))
		}
		m.report("table split failed", err)
		return domain.Table{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	m.mu.Lock()
	m.applyLocked(updatedSource)
	m.applyLocked(created)
	m.mu.Unlock()
	return created.Clone(), nil
}

// Refresh replaces the cache with a fresh authoritative fetch.
func (m *Manager) Refresh(ctx context.Context) error {
	fetched, err := m.backend.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("refresh tables: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = make(map[uuid.UUID]domain.Table, len(fetched))
	for _, t := range fetched {
		m.tables[t.ID] = t.Clone()
	}
	return nil
}

// ApplyAuthoritative folds one authoritative table (poll or push result)
// into the cache, discarding stale rows by timestamp.
func (m *Manager) ApplyAuthoritative(t domain.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyLocked(t)
}

// Get returns a copy of one cached table.
func (m *Manager) Get(tableID uuid.UUID) (domain.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return domain.Table{}, false
	}
	return t.Clone(), true
}

// List returns copies of all cached tables ordered by table number.
func (m *Manager) List() []domain.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

// TablesInUse counts occupied and reserved tables.
func (m *Manager) TablesInUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tables {
		if t.Status == enum.TableStatusOccupied || t.Status == enum.TableStatusReserved {
			n++
		}
	}
	return n
}

func (m *Manager) applyLocked(t domain.Table) {
	if cur, ok := m.tables[t.ID]; ok && !t.UpdatedAt.After(cur.UpdatedAt) {
		return
	}
	m.tables[t.ID] = t.Clone()
}

func (m *Manager) rollbackLocked(snapshot domain.Table) {
	if cur, ok := m.tables[snapshot.ID]; ok && cur.UpdatedAt.After(snapshot.UpdatedAt) {
		return
	}
	m.tables[snapshot.ID] = snapshot
}

func (m *Manager) report(msg string, err error) {
	m.log.Warn(msg, zap.Error(err))
	if m.notify != nil {
		m.notify.Notify(fmt.Sprintf("%s: %v", msg, err))
	}
}

func validStatus(s string) bool {
	switch s {
	case enum.TableStatusAvailable, enum.TableStatusOccupied,
		enum.TableStatusReserved, enum.TableStatusCleaning:
		return true
	}
	return false
}
