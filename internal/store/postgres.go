package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"shift_handover/internal/shift"
)

//go:embed schema.sql
var schemaSQL string

const (
	channelFaults  = "handover_faults"
	channelPlanned = "handover_planned"
	channelShifts  = "handover_shifts"

	snapshotTimeout = 10 * time.Second
	listenerPing    = 90 * time.Second
)

var channelKinds = map[string]kind{
	channelFaults:  kindFaults,
	channelPlanned: kindPlanned,
	channelShifts:  kindShift,
}

// Postgres is the shared record store. Ids and creation times are assigned by
// the database, and triggers publish the shift key of every changed row so
// that subscribers in any process re-read their snapshot.
type Postgres struct {
	db       *sql.DB
	listener *pq.Listener
	subs     *fanout
	log      *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	p := &Postgres{
		db:   db,
		subs: newFanout(),
		log:  log,
		done: make(chan struct{}),
	}
	p.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, p.listenerEvent)
	for ch := range channelKinds {
		if err := p.listener.Listen(ch); err != nil {
			p.listener.Close()
			db.Close()
			return nil, fmt.Errorf("listen %s: %w", ch, err)
		}
	}

	p.wg.Add(1)
	go p.dispatch()
	return p, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	defer tx.Rollback()

	// Serialise concurrent starts; trigger DDL is not idempotent under races.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext('shift_handover_schema'))"); err != nil {
		return fmt.Errorf("ensure schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) Mode() string { return "postgres" }

func (p *Postgres) listenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		p.log.Debug("record store listener connected")
	case pq.ListenerEventDisconnected:
		p.log.Warn("record store listener disconnected", zap.Error(err))
	case pq.ListenerEventReconnected:
		p.log.Info("record store listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		p.log.Warn("record store listener reconnect failed", zap.Error(err))
	}
}

func (p *Postgres) dispatch() {
	defer p.wg.Done()
	ping := time.NewTicker(listenerPing)
	defer ping.Stop()
	for {
		select {
		case <-p.done:
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Reconnected: anything published while we were away is lost.
				p.subs.notifyAll()
				continue
			}
			k, known := channelKinds[n.Channel]
			if !known {
				continue
			}
			p.subs.notify(k, n.Extra)
		case <-ping.C:
			go func() {
				if err := p.listener.Ping(); err != nil {
					p.log.Debug("record store listener ping", zap.Error(err))
				}
			}()
		}
	}
}

func (p *Postgres) AddFault(ctx context.Context, shiftKey string, f shift.Fault) (shift.Fault, error) {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO faults (shift_key, site_number, site_name, reason, is_power_issue,
		                    battery_backup, treatment, downtime, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		shiftKey, f.SiteNumber, f.SiteName, f.Reason, f.IsPowerIssue,
		f.BatteryBackup, f.Treatment, f.Downtime, string(f.Status)).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return shift.Fault{}, fmt.Errorf("insert fault: %w", err)
	}
	return f, nil
}

func (p *Postgres) UpdateFault(ctx context.Context, id string, u FaultUpdate) error {
	if u.empty() {
		var exists bool
		if err := p.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM faults WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("update fault: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return nil
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Treatment != nil {
		set("treatment", *u.Treatment)
	}
	if u.Downtime != nil {
		set("downtime", *u.Downtime)
	}
	if u.Status != nil {
		set("status", string(*u.Status))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE faults SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update fault: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) DeleteFault(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM faults WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete fault: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) AddPlanned(ctx context.Context, shiftKey, description string) (shift.PlannedWork, error) {
	w := shift.PlannedWork{Description: description}
	err := p.db.QueryRowContext(ctx,
		"INSERT INTO planned_works (shift_key, description) VALUES ($1, $2) RETURNING id, created_at",
		shiftKey, description).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return shift.PlannedWork{}, fmt.Errorf("insert planned work: %w", err)
	}
	return w, nil
}

func (p *Postgres) DeletePlanned(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM planned_works WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete planned work: %w", err)
	}
	return requireRow(res)
}

// UpdateShift creates the shift record if needed and sets only the fields
// present in u, so concurrent edits of different fields do not clobber
// each other.
func (p *Postgres) UpdateShift(ctx context.Context, shiftKey string, u ShiftUpdate) error {
	cols := []string{"shift_key", "shift_date", "shift_type"}
	args := []any{shiftKey, u.Date, u.Type.String()}
	var sets []string
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	if u.Controllers != nil {
		add("controller_1", u.Controllers[0])
		add("controller_2", u.Controllers[1])
	}
	if u.Notes != nil {
		add("notes", *u.Notes)
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ") + ", updated_at = now()"
	}
	query := fmt.Sprintf("INSERT INTO shifts (%s) VALUES (%s) ON CONFLICT (shift_key) %s",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), conflict)

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) loadFaults(ctx context.Context, shiftKey string) ([]shift.Fault, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, site_number, site_name, reason, is_power_issue, battery_backup,
		       treatment, downtime, status, created_at
		FROM faults
		WHERE shift_key = $1
		ORDER BY created_at DESC, id`, shiftKey)
	if err != nil {
		return nil, fmt.Errorf("query faults: %w", err)
	}
	defer rows.Close()

	var out []shift.Fault
	for rows.Next() {
		var f shift.Fault
		var status string
		if err := rows.Scan(&f.ID, &f.SiteNumber, &f.SiteName, &f.Reason, &f.IsPowerIssue,
			&f.BatteryBackup, &f.Treatment, &f.Downtime, &status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fault: %w", err)
		}
		f.Status = shift.Status(status)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) loadPlanned(ctx context.Context, shiftKey string) ([]shift.PlannedWork, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, description, created_at
		FROM planned_works
		WHERE shift_key = $1
		ORDER BY created_at, id`, shiftKey)
	if err != nil {
		return nil, fmt.Errorf("query planned works: %w", err)
	}
	defer rows.Close()

	var out []shift.PlannedWork
	for rows.Next() {
		var w shift.PlannedWork
		if err := rows.Scan(&w.ID, &w.Description, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan planned work: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *Postgres) loadShift(ctx context.Context, shiftKey string) (shift.Info, bool, error) {
	var info shift.Info
	var typ string
	err := p.db.QueryRowContext(ctx, `
		SELECT shift_date, shift_type, controller_1, controller_2, notes
		FROM shifts WHERE shift_key = $1`, shiftKey).
		Scan(&info.Date, &typ, &info.Controllers[0], &info.Controllers[1], &info.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return shift.Info{}, false, nil
	}
	if err != nil {
		return shift.Info{}, false, fmt.Errorf("query shift: %w", err)
	}
	if info.Type, err = shift.ParseType(typ); err != nil {
		return shift.Info{}, false, err
	}
	return info, true, nil
}

func (p *Postgres) WatchFaults(shiftKey string, fn FaultsFunc) (Unsubscribe, error) {
	return p.subs.add(kindFaults, shiftKey, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		fn(p.loadFaults(ctx, shiftKey))
	})
}

func (p *Postgres) WatchPlanned(shiftKey string, fn PlannedFunc) (Unsubscribe, error) {
	return p.subs.add(kindPlanned, shiftKey, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		fn(p.loadPlanned(ctx, shiftKey))
	})
}

func (p *Postgres) WatchShift(shiftKey string, fn ShiftFunc) (Unsubscribe, error) {
	return p.subs.add(kindShift, shiftKey, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		fn(p.loadShift(ctx, shiftKey))
	})
}

func (p *Postgres) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.subs.close()
		if lerr := p.listener.Close(); lerr != nil {
			p.log.Debug("close record store listener", zap.Error(lerr))
		}
		p.wg.Wait()
		err = p.db.Close()
	})
	return err
}
