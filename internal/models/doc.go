// Package models defines the core domain models for owetrack.
//
// # Models
//
//   - User: a registered account, or a ghost placeholder created during import
//   - Group: a named set of members who share expenses
//   - Expense: an amount paid by one member, split across debtors
//   - Split: one debtor's share of an expense
//
// # Design Principles
//
// 1. **ID references, not pointers**: relationships between aggregates use
// ID strings to avoid circular references.
// 2. **Splits are embedded**: a Split has no identity outside its Expense;
// the expense exclusively owns its split list.
// 3. **Ghosts are full users**: a ghost is a complete User record with an
// unusable credential, so expenses and memberships can reference a person
// before they register. Promote is the only path out of the ghost state.
// 4. **Friend links are two writes**: friendship is symmetric but stored as
// two independent references; every mutator keeps both sides in sync.
package models
