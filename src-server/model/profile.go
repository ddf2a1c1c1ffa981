package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

const (
	ProfileFullNameMaxLen = 32
	ProfileNicknameMaxLen = 12
)

// A Profile is the user-facing identity. Its ID matches the auth user's ID
// for self-service members, or is freshly generated for members added by
// someone else (no login of their own).
type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	ID        string `bun:"id,pk,notnull"`        // required
	FullName  string `bun:"full_name,notnull"`    // required
	Nickname  string `bun:"nickname"`
	CreatedAt int64  `bun:"created_at,notnull"`
}

func (p *Profile) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("(*Profile).Upsert: profile id is blank")
	case p.FullName == "":
		return fmt.Errorf("(*Profile).Upsert: full name is blank")
	case len(p.FullName) > ProfileFullNameMaxLen:
		return fmt.Errorf("(*Profile).Upsert: full name longer than %d chars", ProfileFullNameMaxLen)
	case len(p.Nickname) > ProfileNicknameMaxLen:
		return fmt.Errorf("(*Profile).Upsert: nickname longer than %d chars", ProfileNicknameMaxLen)
	}

	if _, err := db.NewInsert().
		Model(p).
		On("CONFLICT (id) DO UPDATE").
		Set("full_name = EXCLUDED.full_name").
		Set("nickname = EXCLUDED.nickname").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Profile).Upsert: %w", err)
	}

	return nil
}
