package specification

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BySessionID filters by session_id
type BySessionID struct {
	ID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.ID)
}

// ByUserID filters by user_id
type ByUserID struct {
	ID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.ID)
}

// ForUpdate locks the selected rows until the transaction ends
type ForUpdate struct{}

func (s ForUpdate) Apply(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// TurnOrder sorts turn log rows by turn number, oldest first
type TurnOrder struct {
	Desc bool
}

func (s TurnOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "turn_num"}, Desc: s.Desc})
}

// Page limits a listing to one page of rows
type Page struct {
	Limit  int
	Offset int
}

func (s Page) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
