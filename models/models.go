package models

// All lists every model for migration, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Streak{},
		&Achievement{},
		&PracticeSession{},
		&CheckIn{},
	}
}
