/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"database/sql"
	"fmt"
)

type seedCharacter struct {
	character Character
	slots     []SpellSlot
}

var seedParty = []seedCharacter{
	{character: Character{Name: "Fighter", CurrentHP: 24, MaxHP: 24, Notes: "Frontline"}},
	{
		character: Character{Name: "Wizard", CurrentHP: 14, MaxHP: 18, Notes: "Caster"},
		slots: []SpellSlot{
			{Level: 1, Current: 4, Max: 4},
			{Level: 2, Current: 3, Max: 3},
			{Level: 3, Current: 2, Max: 2},
		},
	},
	{
		character: Character{Name: "Cleric", CurrentHP: 20, MaxHP: 20, Notes: "Healer"},
		slots: []SpellSlot{
			{Level: 1, Current: 4, Max: 4},
			{Level: 2, Current: 3, Max: 3},
		},
	},
}

// Seed populates an empty database with the example party in a single
// transaction. It reports whether anything was written.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	seeded := false

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM characters").Scan(&count); err != nil {
			return fmt.Errorf("failed to count characters: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, seed := range seedParty {
			c, err := createCharacter(ctx, tx, seed.character)
			if err != nil {
				return fmt.Errorf("seed characters: %w", err)
			}

			for _, slot := range seed.slots {
				slot.CharacterID = c.ID
				if _, err := addSpellSlot(ctx, tx, slot); err != nil {
					return fmt.Errorf("seed spell slots: %w", err)
				}
			}

			if _, err := setInitiative(ctx, tx, c.ID, 0, false); err != nil {
				return fmt.Errorf("seed initiative: %w", err)
			}
		}

		seeded = true

		return nil
	})
	if err != nil {
		return false, err
	}

	return seeded, nil
}
