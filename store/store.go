/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists characters, their spell slots and their initiative
// entries in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid record")
	ErrConflict = errors.New("already exists")
)

// Character is a tracked combatant. SpellSlots and Initiative are only
// populated by Get and List.
type Character struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	CurrentHP  int              `json:"current_hp"`
	MaxHP      int              `json:"max_hp"`
	Notes      string           `json:"notes,omitempty"`
	SpellSlots []SpellSlot      `json:"spell_slots,omitempty"`
	Initiative *InitiativeEntry `json:"initiative,omitempty"`
}

type SpellSlot struct {
	ID          int64 `json:"id"`
	CharacterID int64 `json:"character_id"`
	Level       int   `json:"slot_level"`
	Current     int   `json:"current_slots"`
	Max         int   `json:"max_slots"`
}

type InitiativeEntry struct {
	ID          int64 `json:"id"`
	CharacterID int64 `json:"character_id"`
	Value       int   `json:"initiative_value"`
	CurrentTurn bool  `json:"is_current_turn"`
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is safe for concurrent use. Writes go through a single connection,
// so each transaction observes and commits a consistent row.
type Store struct {
	db *sql.DB
}

// Clamp constrains v to the closed range [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// addHP returns hp+delta constrained to [0, max], saturating instead of
// overflowing for deltas near the int limits. hp must already be in range.
func addHP(hp, delta, max int) int {
	switch {
	case delta > max-hp:
		return max
	case delta < -hp:
		return 0
	default:
		return hp + delta
	}
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open opens (creating if needed) the database at path and brings its schema
// up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

// constraintError maps SQLite constraint failures onto the package's
// sentinel errors.
func constraintError(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msg := se.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return err
}

func scanCharacter(row interface{ Scan(...any) error }) (Character, error) {
	var (
		c     Character
		notes sql.NullString
	)

	if err := row.Scan(&c.ID, &c.Name, &c.CurrentHP, &c.MaxHP, &notes); err != nil {
		return Character{}, err
	}
	c.Notes = notes.String

	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Get returns the character with the given id, including its spell slots
// and initiative entry.
func (s *Store) Get(ctx context.Context, id int64) (Character, error) {
	var c Character

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error

		c, err = scanCharacter(tx.QueryRowContext(ctx,
			"SELECT id, name, current_hp, max_hp, notes FROM characters WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("character %d %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get character: %w", err)
		}

		slots, err := spellSlots(ctx, tx, id)
		if err != nil {
			return err
		}
		c.SpellSlots = slots[id]

		entries, err := initiativeEntries(ctx, tx, id)
		if err != nil {
			return err
		}
		c.Initiative = entries[id]

		return nil
	})

	return c, err
}

// List returns every character ordered by id, with relations attached.
func (s *Store) List(ctx context.Context) ([]Character, error) {
	var characters []Character

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id, name, current_hp, max_hp, notes FROM characters ORDER BY id")
		if err != nil {
			return fmt.Errorf("failed to list characters: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCharacter(rows)
			if err != nil {
				return fmt.Errorf("failed to scan character: %w", err)
			}
			characters = append(characters, c)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to list characters: %w", err)
		}

		slots, err := spellSlots(ctx, tx, 0)
		if err != nil {
			return err
		}

		entries, err := initiativeEntries(ctx, tx, 0)
		if err != nil {
			return err
		}

		for i := range characters {
			characters[i].SpellSlots = slots[characters[i].ID]
			characters[i].Initiative = entries[characters[i].ID]
		}

		return nil
	})

	return characters, err
}

// spellSlots loads slots keyed by owner. A zero characterID loads all of them.
func spellSlots(ctx context.Context, tx *sql.Tx, characterID int64) (map[int64][]SpellSlot, error) {
	query := "SELECT id, character_id, slot_level, current_slots, max_slots FROM spell_slots"
	args := []any{}
	if characterID != 0 {
		query += " WHERE character_id = ?"
		args = append(args, characterID)
	}
	query += " ORDER BY character_id, slot_level"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spell slots: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]SpellSlot)
	for rows.Next() {
		var slot SpellSlot
		if err := rows.Scan(&slot.ID, &slot.CharacterID, &slot.Level, &slot.Current, &slot.Max); err != nil {
			return nil, fmt.Errorf("failed to scan spell slot: %w", err)
		}
		out[slot.CharacterID] = append(out[slot.CharacterID], slot)
	}

	return out, rows.Err()
}

func initiativeEntries(ctx context.Context, tx *sql.Tx, characterID int64) (map[int64]*InitiativeEntry, error) {
	query := "SELECT id, character_id, initiative_value, is_current_turn FROM initiative"
	args := []any{}
	if characterID != 0 {
		query += " WHERE character_id = ?"
		args = append(args, characterID)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list initiative: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*InitiativeEntry)
	for rows.Next() {
		var entry InitiativeEntry
		if err := rows.Scan(&entry.ID, &entry.CharacterID, &entry.Value, &entry.CurrentTurn); err != nil {
			return nil, fmt.Errorf("failed to scan initiative: %w", err)
		}
		out[entry.CharacterID] = &entry
	}

	return out, rows.Err()
}

// ApplyDelta adds delta to the character's current HP, clamped to
// [0, max_hp], and commits before returning. Over-heal and over-damage are
// absorbed rather than rejected.
func (s *Store) ApplyDelta(ctx context.Context, id int64, delta int) (Character, error) {
	var c Character

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error

		c, err = scanCharacter(tx.QueryRowContext(ctx,
			"SELECT id, name, current_hp, max_hp, notes FROM characters WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("character %d %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get character: %w", err)
		}

		c.CurrentHP = addHP(c.CurrentHP, delta, c.MaxHP)

		if _, err := tx.ExecContext(ctx,
			"UPDATE characters SET current_hp = ? WHERE id = ?", c.CurrentHP, id); err != nil {
			return fmt.Errorf("failed to update character: %w", err)
		}

		return nil
	})

	return c, err
}

// CreateCharacter inserts c and returns it with its assigned id.
func (s *Store) CreateCharacter(ctx context.Context, c Character) (Character, error) {
	return createCharacter(ctx, s.db, c)
}

func createCharacter(ctx context.Context, q querier, c Character) (Character, error) {
	if c.Name == "" {
		return Character{}, fmt.Errorf("%w: character name is required", ErrInvalid)
	}
	if c.MaxHP < 0 || c.CurrentHP < 0 || c.CurrentHP > c.MaxHP {
		return Character{}, fmt.Errorf("%w: hp %d/%d out of range", ErrInvalid, c.CurrentHP, c.MaxHP)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO characters (name, current_hp, max_hp, notes) VALUES (?, ?, ?, ?)",
		c.Name, c.CurrentHP, c.MaxHP, nullString(c.Notes),
	)
	if err != nil {
		return Character{}, fmt.Errorf("failed to create character: %w", constraintError(err))
	}

	c.ID, err = res.LastInsertId()
	if err != nil {
		return Character{}, fmt.Errorf("failed to create character: %w", err)
	}
	c.SpellSlots = nil
	c.Initiative = nil

	return c, nil
}

// AddSpellSlot inserts a slot row. A second slot for the same character and
// level is rejected with ErrConflict.
func (s *Store) AddSpellSlot(ctx context.Context, slot SpellSlot) (SpellSlot, error) {
	return addSpellSlot(ctx, s.db, slot)
}

func addSpellSlot(ctx context.Context, q querier, slot SpellSlot) (SpellSlot, error) {
	if slot.Level < 1 || slot.Level > 9 {
		return SpellSlot{}, fmt.Errorf("%w: slot level %d out of range", ErrInvalid, slot.Level)
	}
	if slot.Max < 0 || slot.Current < 0 || slot.Current > slot.Max {
		return SpellSlot{}, fmt.Errorf("%w: slots %d/%d out of range", ErrInvalid, slot.Current, slot.Max)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO spell_slots (character_id, slot_level, current_slots, max_slots) VALUES (?, ?, ?, ?)",
		slot.CharacterID, slot.Level, slot.Current, slot.Max,
	)
	if err != nil {
		return SpellSlot{}, fmt.Errorf("failed to add spell slot: %w", constraintError(err))
	}

	slot.ID, err = res.LastInsertId()
	if err != nil {
		return SpellSlot{}, fmt.Errorf("failed to add spell slot: %w", err)
	}

	return slot, nil
}

// SetInitiative creates or replaces the character's single initiative entry.
// Nothing here keeps is_current_turn unique across characters.
func (s *Store) SetInitiative(ctx context.Context, characterID int64, value int, currentTurn bool) (InitiativeEntry, error) {
	return setInitiative(ctx, s.db, characterID, value, currentTurn)
}

func setInitiative(ctx context.Context, q querier, characterID int64, value int, currentTurn bool) (InitiativeEntry, error) {
	entry := InitiativeEntry{
		CharacterID: characterID,
		Value:       value,
		CurrentTurn: currentTurn,
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO initiative (character_id, initiative_value, is_current_turn) VALUES (?, ?, ?)
		ON CONFLICT(character_id) DO UPDATE SET
			initiative_value = excluded.initiative_value,
			is_current_turn = excluded.is_current_turn
		RETURNING id`,
		characterID, value, currentTurn,
	).Scan(&entry.ID)
	if err != nil {
		return InitiativeEntry{}, fmt.Errorf("failed to set initiative: %w", constraintError(err))
	}

	return entry, nil
}

// DeleteCharacter removes the character together with its spell slots and
// initiative entry.
func (s *Store) DeleteCharacter(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM characters WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("character %d %w", id, ErrNotFound)
	}

	return nil
}
