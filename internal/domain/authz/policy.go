// Package authz is the single authorization table for loan-servicing actions.
// Every use case asks Authorize before touching state; handlers never compare role strings.
package authz

import "loan-servicing-backend/internal/domain/apperr"

type Role string

const (
	RoleBorrower    Role = "borrower"
	RoleLender      Role = "lender"
	RoleLoanOfficer Role = "loan_officer"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBorrower, RoleLender, RoleLoanOfficer, RoleAdmin:
		return true
	}
	return false
}

// Staff roles can act on loans they do not own.
func (r Role) Staff() bool { return r == RoleLender || r == RoleLoanOfficer || r == RoleAdmin }

// MaxActorIDLength bounds actor ids; the borrower, lender, officer and verifier columns hold this many.
const MaxActorIDLength = 64

// Actor is the authenticated caller as supplied by the identity collaborator.
type Actor struct {
	ID   string
	Role Role
}

type Action string

const (
	ActionApply         Action = "apply for a loan"
	ActionViewLoan      Action = "view loan"
	ActionApprove       Action = "approve loan"
	ActionReject        Action = "reject loan"
	ActionActivate      Action = "activate loan"
	ActionRegenerate    Action = "regenerate schedule"
	ActionDefault       Action = "mark loan defaulted"
	ActionRecordPayment Action = "record payment"
	ActionSubmitPayment Action = "submit payment"
	ActionVerifyPayment Action = "verify payment"
	ActionReviewQueue   Action = "list payments awaiting verification"
	ActionViewOwnLedger Action = "view own installments"
)

// Scope narrows a role's grant to its relationship with the loan.
type Scope int

const (
	ScopeAny      Scope = iota + 1
	ScopeOwn            // actor is the borrower
	ScopeAssigned       // actor is the assigned loan officer
)

// Parties are the loan's relationships used for ownership checks.
type Parties struct {
	BorrowerID    string
	LoanOfficerID string
}

var table = map[Action]map[Role]Scope{
	ActionApply: {RoleBorrower: ScopeAny},
	ActionViewLoan: {
		RoleAdmin:       ScopeAny,
		RoleLender:      ScopeAny,
		RoleLoanOfficer: ScopeAssigned,
		RoleBorrower:    ScopeOwn,
	},
	ActionApprove:    {RoleAdmin: ScopeAny, RoleLender: ScopeAny},
	ActionReject:     {RoleAdmin: ScopeAny, RoleLender: ScopeAny},
	ActionActivate:   {RoleAdmin: ScopeAny, RoleLender: ScopeAny},
	ActionRegenerate: {RoleAdmin: ScopeAny, RoleLender: ScopeAny},
	ActionDefault:    {RoleAdmin: ScopeAny},
	ActionRecordPayment: {
		RoleAdmin:       ScopeAny,
		RoleLender:      ScopeAny,
		RoleLoanOfficer: ScopeAny,
		RoleBorrower:    ScopeOwn,
	},
	ActionSubmitPayment: {RoleBorrower: ScopeOwn},
	ActionVerifyPayment: {RoleAdmin: ScopeAny, RoleLender: ScopeAny},
	ActionReviewQueue:   {RoleAdmin: ScopeAny, RoleLender: ScopeAny},
	ActionViewOwnLedger: {RoleBorrower: ScopeAny},
}

// Allowed evaluates the table without building an error.
func Allowed(a Actor, action Action, p Parties) bool {
	if a.ID == "" || !a.Role.Valid() {
		return false
	}
	scope, ok := table[action][a.Role]
	if !ok {
		return false
	}
	switch scope {
	case ScopeAny:
		return true
	case ScopeOwn:
		return p.BorrowerID != "" && p.BorrowerID == a.ID
	case ScopeAssigned:
		return p.LoanOfficerID != "" && p.LoanOfficerID == a.ID
	}
	return false
}

// Authorize returns an *apperr.AuthorizationError when the actor may not perform action.
func Authorize(a Actor, action Action, p Parties) error {
	if Allowed(a, action, p) {
		return nil
	}
	return &apperr.AuthorizationError{ActorID: a.ID, Role: string(a.Role), Action: string(action)}
}
