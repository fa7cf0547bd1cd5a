// Package storage persists extraction sessions and their records in a local
// SQLite database. Every stream, equipment and heat-exchanger row belongs to
// exactly one session.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	apperrors "teacli/internal/errors"
	"teacli/pkg/contracts/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite handle. The connection pool is capped at one
// connection; SQLite serializes writers anyway and a single connection keeps
// transaction semantics simple.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for throwaway databases in tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("opening database failed", err).WithContext("path", path)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperrors.NewStorageError("applying pragma failed", err).WithContext("pragma", pragma)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP NOT NULL)`); err != nil {
		return apperrors.NewStorageError("creating migrations table failed", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return apperrors.NewStorageError("reading embedded migrations failed", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, name).Scan(&applied); err != nil {
			return apperrors.NewStorageError("checking migration state failed", err).WithContext("migration", name)
		}
		if applied > 0 {
			continue
		}

		script, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return apperrors.NewStorageError("reading migration failed", err).WithContext("migration", name)
		}
		if _, err := s.db.ExecContext(ctx, string(script)); err != nil {
			return apperrors.NewStorageError("applying migration failed", err).WithContext("migration", name)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, name, time.Now().UTC()); err != nil {
			return apperrors.NewStorageError("recording migration failed", err).WithContext("migration", name)
		}
		s.logger.Info("migration applied", slog.String("migration", name))
	}
	return nil
}

// BeginSession records a new session in the active state.
func (s *Store) BeginSession(ctx context.Context, session domain.ExtractionSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extraction_sessions (id, extraction_time, sim_file_path, hex_file_path, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.ExtractionTime.UTC(), session.SimFilePath, session.HexFilePath,
		string(domain.SessionActive), session.Notes)
	if err != nil {
		return apperrors.NewStorageError("creating session failed", err).WithContext("session", session.ID)
	}
	return nil
}

// CompleteSession marks a session complete and stores its aggregate summary.
// Zero counts are legitimate: an empty flowsheet still completes.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, summary domain.SessionSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_sessions
		 SET status = ?, stream_count = ?, equipment_count = ?, hex_count = ?, total_duty_kw = ?, total_area_m2 = ?
		 WHERE id = ?`,
		string(domain.SessionComplete), summary.StreamCount, summary.EquipmentCount, summary.HexCount,
		summary.TotalDutyKW, summary.TotalAreaM2, sessionID)
	if err != nil {
		return apperrors.NewStorageError("completing session failed", err).WithContext("session", sessionID)
	}
	return s.requireRow(res, sessionID)
}

// MarkIncomplete flags a failed run. Records written before the failure stay
// in place for inspection.
func (s *Store) MarkIncomplete(ctx context.Context, sessionID, note string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_sessions SET status = ?, notes = ? WHERE id = ?`,
		string(domain.SessionIncomplete), note, sessionID)
	if err != nil {
		return apperrors.NewStorageError("marking session incomplete failed", err).WithContext("session", sessionID)
	}
	return s.requireRow(res, sessionID)
}

func (s *Store) requireRow(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("reading affected rows failed", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError("session").WithContext("session", sessionID)
	}
	return nil
}

// WriteStreams stores all stream records of a session in one transaction.
func (s *Store) WriteStreams(ctx context.Context, sessionID string, streams []domain.StreamRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO streams (session_id, name, temperature, pressure, mass_flow, volume_flow, molar_flow,
			                      composition, category, sub_category, confidence, reasoning)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, st := range streams {
			composition, err := jsonText(st.Composition, "{}")
			if err != nil {
				return err
			}
			reasoning, err := jsonText(st.Reasoning, "[]")
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, sessionID, st.Name, st.Temperature, st.Pressure,
				st.MassFlow, st.VolumeFlow, st.MolarFlow, composition,
				string(st.Category), st.SubCategory, st.Confidence, reasoning); err != nil {
				return fmt.Errorf("stream %s: %w", st.Name, err)
			}
		}
		return nil
	}, "writing streams", sessionID)
}

// WriteEquipment stores all equipment records of a session in one transaction.
func (s *Store) WriteEquipment(ctx context.Context, sessionID string, equipment []domain.EquipmentRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO equipment (session_id, name, type, source_type, parameters,
			                        inlet_streams, outlet_streams, importance, sheet_specified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, eq := range equipment {
			parameters, err := jsonText(eq.Parameters, "{}")
			if err != nil {
				return err
			}
			inlets, err := jsonText(eq.InletStreams, "[]")
			if err != nil {
				return err
			}
			outlets, err := jsonText(eq.OutletStreams, "[]")
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, sessionID, eq.Name, string(eq.Type), eq.SourceType,
				parameters, inlets, outlets, string(eq.Importance), eq.SheetSpecified); err != nil {
				return fmt.Errorf("equipment %s: %w", eq.Name, err)
			}
		}
		return nil
	}, "writing equipment", sessionID)
}

// WriteHeatExchangers stores all heat-exchanger records of a session in one
// transaction. Unreported duty and area are stored as NULL, not zero.
func (s *Store) WriteHeatExchangers(ctx context.Context, sessionID string, records []domain.HeatExchangerRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO heat_exchangers (session_id, name, kind, duty_kw, area_m2, hot_stream, cold_stream,
			                              hot_inlet_temp, hot_outlet_temp, cold_inlet_temp, cold_outlet_temp,
			                              inlet_streams, outlet_streams)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, hx := range records {
			inlets, err := jsonText(hx.InletStreams, "[]")
			if err != nil {
				return err
			}
			outlets, err := jsonText(hx.OutletStreams, "[]")
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, sessionID, hx.Name, hx.Kind,
				nullable(hx.DutyKW), nullable(hx.AreaM2), hx.HotStream, hx.ColdStream,
				nullable(hx.HotInletTempC), nullable(hx.HotOutletTempC),
				nullable(hx.ColdInletTempC), nullable(hx.ColdOutletTempC),
				inlets, outlets); err != nil {
				return fmt.Errorf("heat exchanger %s: %w", hx.Name, err)
			}
		}
		return nil
	}, "writing heat exchangers", sessionID)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error, op, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError(op+" failed", err).WithContext("session", sessionID)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return apperrors.NewStorageError(op+" failed", err).WithContext("session", sessionID)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError(op+" failed", err).WithContext("session", sessionID)
	}
	return nil
}

// GetSession loads one session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.ExtractionSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, extraction_time, sim_file_path, hex_file_path, status,
		        stream_count, equipment_count, hex_count, total_duty_kw, total_area_m2, notes
		 FROM extraction_sessions WHERE id = ?`, sessionID)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("session").WithContext("session", sessionID)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("loading session failed", err).WithContext("session", sessionID)
	}
	return session, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]domain.ExtractionSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, extraction_time, sim_file_path, hex_file_path, status,
		        stream_count, equipment_count, hex_count, total_duty_kw, total_area_m2, notes
		 FROM extraction_sessions ORDER BY extraction_time DESC, id DESC`)
	if err != nil {
		return nil, apperrors.NewStorageError("listing sessions failed", err)
	}
	defer rows.Close()

	var sessions []domain.ExtractionSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scanning session failed", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("listing sessions failed", err)
	}
	return sessions, nil
}

// LatestSessionID returns the ID of the most recent complete session.
func (s *Store) LatestSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM extraction_sessions WHERE status = ?
		 ORDER BY extraction_time DESC, id DESC LIMIT 1`,
		string(domain.SessionComplete)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", apperrors.NewNotFoundError("complete session")
	}
	if err != nil {
		return "", apperrors.NewStorageError("finding latest session failed", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.ExtractionSession, error) {
	var session domain.ExtractionSession
	var status string
	if err := row.Scan(&session.ID, &session.ExtractionTime, &session.SimFilePath, &session.HexFilePath,
		&status, &session.Summary.StreamCount, &session.Summary.EquipmentCount, &session.Summary.HexCount,
		&session.Summary.TotalDutyKW, &session.Summary.TotalAreaM2, &session.Notes); err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	return &session, nil
}

// StreamsBySession loads all stream records of a session in insertion order.
func (s *Store) StreamsBySession(ctx context.Context, sessionID string) ([]domain.StreamRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, temperature, pressure, mass_flow, volume_flow, molar_flow,
		        composition, category, sub_category, confidence, reasoning
		 FROM streams WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, apperrors.NewStorageError("loading streams failed", err).WithContext("session", sessionID)
	}
	defer rows.Close()

	var streams []domain.StreamRecord
	for rows.Next() {
		var st domain.StreamRecord
		var composition, category, reasoning string
		if err := rows.Scan(&st.Name, &st.Temperature, &st.Pressure, &st.MassFlow, &st.VolumeFlow,
			&st.MolarFlow, &composition, &category, &st.SubCategory, &st.Confidence, &reasoning); err != nil {
			return nil, apperrors.NewStorageError("scanning stream failed", err).WithContext("session", sessionID)
		}
		st.Category = domain.StreamCategory(category)
		if err := json.Unmarshal([]byte(composition), &st.Composition); err != nil {
			return nil, apperrors.NewStorageError("decoding stream composition failed", err).WithContext("stream", st.Name)
		}
		if err := json.Unmarshal([]byte(reasoning), &st.Reasoning); err != nil {
			return nil, apperrors.NewStorageError("decoding stream reasoning failed", err).WithContext("stream", st.Name)
		}
		streams = append(streams, st)
	}
	return streams, rows.Err()
}

// EquipmentBySession loads all equipment records of a session in insertion
// order.
func (s *Store) EquipmentBySession(ctx context.Context, sessionID string) ([]domain.EquipmentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type, source_type, parameters, inlet_streams, outlet_streams, importance, sheet_specified
		 FROM equipment WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, apperrors.NewStorageError("loading equipment failed", err).WithContext("session", sessionID)
	}
	defer rows.Close()

	var equipment []domain.EquipmentRecord
	for rows.Next() {
		var eq domain.EquipmentRecord
		var typ, importance, parameters, inlets, outlets string
		if err := rows.Scan(&eq.Name, &typ, &eq.SourceType, &parameters, &inlets, &outlets,
			&importance, &eq.SheetSpecified); err != nil {
			return nil, apperrors.NewStorageError("scanning equipment failed", err).WithContext("session", sessionID)
		}
		eq.Type = domain.EquipmentType(typ)
		eq.Importance = domain.ImportanceTier(importance)
		if err := json.Unmarshal([]byte(parameters), &eq.Parameters); err != nil {
			return nil, apperrors.NewStorageError("decoding equipment parameters failed", err).WithContext("equipment", eq.Name)
		}
		if err := json.Unmarshal([]byte(inlets), &eq.InletStreams); err != nil {
			return nil, apperrors.NewStorageError("decoding inlet streams failed", err).WithContext("equipment", eq.Name)
		}
		if err := json.Unmarshal([]byte(outlets), &eq.OutletStreams); err != nil {
			return nil, apperrors.NewStorageError("decoding outlet streams failed", err).WithContext("equipment", eq.Name)
		}
		equipment = append(equipment, eq)
	}
	return equipment, rows.Err()
}

// HeatExchangersBySession loads all heat-exchanger records of a session in
// insertion order.
func (s *Store) HeatExchangersBySession(ctx context.Context, sessionID string) ([]domain.HeatExchangerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, duty_kw, area_m2, hot_stream, cold_stream,
		        hot_inlet_temp, hot_outlet_temp, cold_inlet_temp, cold_outlet_temp,
		        inlet_streams, outlet_streams
		 FROM heat_exchangers WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, apperrors.NewStorageError("loading heat exchangers failed", err).WithContext("session", sessionID)
	}
	defer rows.Close()

	var records []domain.HeatExchangerRecord
	for rows.Next() {
		var hx domain.HeatExchangerRecord
		var duty, area, hotIn, hotOut, coldIn, coldOut sql.NullFloat64
		var inlets, outlets string
		if err := rows.Scan(&hx.Name, &hx.Kind, &duty, &area, &hx.HotStream, &hx.ColdStream,
			&hotIn, &hotOut, &coldIn, &coldOut, &inlets, &outlets); err != nil {
			return nil, apperrors.NewStorageError("scanning heat exchanger failed", err).WithContext("session", sessionID)
		}
		hx.DutyKW = fromNullable(duty)
		hx.AreaM2 = fromNullable(area)
		hx.HotInletTempC = fromNullable(hotIn)
		hx.HotOutletTempC = fromNullable(hotOut)
		hx.ColdInletTempC = fromNullable(coldIn)
		hx.ColdOutletTempC = fromNullable(coldOut)
		if err := json.Unmarshal([]byte(inlets), &hx.InletStreams); err != nil {
			return nil, apperrors.NewStorageError("decoding inlet streams failed", err).WithContext("exchanger", hx.Name)
		}
		if err := json.Unmarshal([]byte(outlets), &hx.OutletStreams); err != nil {
			return nil, apperrors.NewStorageError("decoding outlet streams failed", err).WithContext("exchanger", hx.Name)
		}
		records = append(records, hx)
	}
	return records, rows.Err()
}

// jsonText marshals v for a TEXT column, mapping nil to the given empty
// literal so the column never holds SQL NULL.
func jsonText(v interface{}, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	text := string(b)
	if text == "null" {
		return empty, nil
	}
	return text, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
