package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string `bun:"id,pk,notnull"`         // required
	Email        string `bun:"email,notnull,unique"`  // required
	PasswordHash string `bun:"password_hash,notnull"` // required
	CreatedAt    int64  `bun:"created_at,notnull"`
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case u.ID == "":
		return fmt.Errorf("(*User).Upsert: user id is blank")
	case u.Email == "":
		return fmt.Errorf("(*User).Upsert: email is blank")
	case u.PasswordHash == "":
		return fmt.Errorf("(*User).Upsert: password hash is blank")
	}

	if _, err := db.NewInsert().
		Model(u).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("password_hash = EXCLUDED.password_hash").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*User).Upsert: %w", err)
	}

	return nil
}
