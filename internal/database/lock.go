package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate: satırı unit-of-work sonuna kadar kilitleyerek okur (SELECT ... FOR UPDATE).
// Testlerde kullanılan sqlite FOR UPDATE bilmez; orada tek yazar olduğu için kilide
// gerek de yoktur, clause eklenmez.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
