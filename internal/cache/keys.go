package cache

import "github.com/google/uuid"

// Key builders shared by handlers (read side) and services (invalidation
// side) so both always agree on the layout.

func UsersKey() string { return "users" }

func UserKey(id uuid.UUID) string { return "users:" + id.String() }

func GroupsKey() string { return "groups" }

func GroupKey(id uuid.UUID) string { return "groups:" + id.String() }

func GroupMembersKey(id uuid.UUID) string { return "groups:" + id.String() + ":members" }

func GroupExpensesKey(id uuid.UUID) string { return "groups:" + id.String() + ":expenses" }

func ExpenseKey(id uuid.UUID) string { return "expenses:" + id.String() }

func ExpenseParticipantsKey(id uuid.UUID) string {
	return "expenses:" + id.String() + ":participants"
}
