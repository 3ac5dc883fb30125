package core

import "github.com/google/uuid"

// Scope: bir kullanıcının hangi şubelerde işlem yapabildiğini söyler.
// Üç hal vardır: tüm şubeler (super_admin), tek şube (branch_admin), hiçbiri.
type Scope struct {
	All      bool
	BranchID *uuid.UUID
}

func ScopeAll() Scope {
	return Scope{All: true}
}

func ScopeBranch(id uuid.UUID) Scope {
	return Scope{BranchID: &id}
}

func ScopeNone() Scope {
	return Scope{}
}

func (s Scope) CanAccessBranch(branchID uuid.UUID) bool {
	if s.All {
		return true
	}
	return s.BranchID != nil && *s.BranchID == branchID
}

// Actor: core servislerine enjekte edilen kimlik. Session benzeri global
// durumdan okunmaz, her çağrıda açıkça taşınır.
type Actor struct {
	UserID uuid.UUID
	Scope  Scope
}
