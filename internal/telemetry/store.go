package telemetry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/hamilton/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store records snapshots in a sqlite database. Each Store opened is a new
// session, so runs can be told apart in the same file.
type Store struct {
	db      *sql.DB
	path    string
	session uuid.UUID
}

// OpenStore opens (creating if needed) the database at path, brings the
// schema up to date and starts a new session.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY between
	// the control loop and the debug pages.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure telemetry db: %w", err)
	}

	s := &Store{db: db, path: path, session: uuid.New()}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(
		`INSERT INTO sessions (session_id, started_unix_nanos) VALUES (?, ?)`,
		s.session.String(), time.Now().UnixNano(),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}
	monitoring.Logf("[telemetry] recording session %s to %s", s.session, path)
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	// m is not closed: that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Session identifies this run's rows.
func (s *Store) Session() uuid.UUID { return s.session }

// Publish implements Sink.
func (s *Store) Publish(ctx context.Context, snap Snapshot) error {
	var tx, ty, tyaw sql.NullFloat64
	if snap.Target != nil {
		tx = sql.NullFloat64{Float64: snap.Target.X, Valid: true}
		ty = sql.NullFloat64{Float64: snap.Target.Y, Valid: true}
		tyaw = sql.NullFloat64{Float64: snap.Target.Yaw, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			session_id, at_unix_nanos,
			robot_x, robot_y, robot_yaw,
			target_x, target_y, target_yaw,
			mode, cmd_forward, cmd_strafe, cmd_yaw, vetoed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.session.String(), snap.At.UnixNano(),
		snap.Robot.X, snap.Robot.Y, snap.Robot.Yaw,
		tx, ty, tyaw,
		snap.Mode, snap.Command.Forward, snap.Command.Strafe, snap.Command.Yaw, snap.Vetoed,
	)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

// Recent returns up to n snapshots from this session, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT at_unix_nanos, robot_x, robot_y, robot_yaw,
		       target_x, target_y, target_yaw,
		       mode, cmd_forward, cmd_strafe, cmd_yaw, vetoed
		  FROM snapshots
		 WHERE session_id = ?
		 ORDER BY at_unix_nanos DESC, snapshot_id DESC
		 LIMIT ?`, s.session.String(), n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap        Snapshot
			at          int64
			tx, ty, tyw sql.NullFloat64
		)
		if err := rows.Scan(
			&at, &snap.Robot.X, &snap.Robot.Y, &snap.Robot.Yaw,
			&tx, &ty, &tyw,
			&snap.Mode, &snap.Command.Forward, &snap.Command.Strafe, &snap.Command.Yaw, &snap.Vetoed,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.At = time.Unix(0, at).UTC()
		if tx.Valid && ty.Valid && tyw.Valid {
			snap.Target = &Pose{X: tx.Float64, Y: ty.Float64, Yaw: tyw.Float64}
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
