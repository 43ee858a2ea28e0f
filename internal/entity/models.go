package entity

func All() []any {
	return []any{
		&User{},
		&PendingUser{},
		&VerificationToken{},
		&MFASecret{},
		&SecurityLog{},
		&Task{},
		&Bid{},
		&Message{},
	}
}
