package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/xuri/excelize/v2"
)

// Role is the semantic meaning a user gives to a spreadsheet column.
type Role string

const (
	RoleDay      Role = "Day"
	RoleMonth    Role = "Month"
	RoleDate     Role = "Date"
	RoleStart    Role = "Start"
	RoleEnd      Role = "End"
	RoleDuration Role = "Duration"
	RoleEvent    Role = "Event"
	RoleHW       Role = "HW"
	RoleCalendar Role = "Calendar"
)

// AllRoles lists the roles in the order they are offered to users.
var AllRoles = []Role{RoleDay, RoleMonth, RoleDate, RoleHW, RoleStart, RoleEnd, RoleDuration, RoleEvent, RoleCalendar}

// ErrColumnsIncomplete is returned when the roles needed to build events are missing.
var ErrColumnsIncomplete = errors.New(config.ErrColumnsMissing)

// ParseRole resolves a role name case-insensitively.
func ParseRole(name string) (Role, error) {
	name = strings.TrimSpace(name)
	for _, r := range AllRoles {
		if strings.EqualFold(string(r), name) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%s: %q", config.ErrRoleUnknown, name)
}

// ParseColumn resolves a zero-based index ("3") or a column letter ("D").
func ParseColumn(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("%s: empty", config.ErrColumnRef)
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%s: %q", config.ErrColumnRef, ref)
		}
		return n, nil
	}
	n, err := excelize.ColumnNameToNumber(ref)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrColumnRef, err)
	}
	return n - 1, nil
}

// Columns is the read-only view of a role mapping that generation needs.
type Columns interface {
	Has(role Role) bool
	IndexOf(role Role) (int, bool)
}

// RoleMap is a bidirectional partial mapping between roles and column indices.
// No two roles share a column, and Date is never set together with Day or Month.
type RoleMap struct {
	byRole map[Role]int
	byCol  map[int]Role
}

// NewRoleMap returns an empty mapping.
func NewRoleMap() *RoleMap {
	return &RoleMap{
		byRole: make(map[Role]int),
		byCol:  make(map[int]Role),
	}
}

// RoleMapFromSpec builds a mapping from role name -> column reference pairs,
// as found in the settings file or on the command line.
func RoleMapFromSpec(spec map[string]string) (*RoleMap, error) {
	m := NewRoleMap()

	// Sorted for a deterministic outcome when the spec itself conflicts.
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		col, err := ParseColumn(spec[name])
		if err != nil {
			return nil, err
		}
		m.Assign(role, col)
	}
	return m, nil
}

// Assign binds role to col. Whatever col held before is released, role
// moves off its previous column, and conflicting roles are cleared.
func (m *RoleMap) Assign(role Role, col int) {
	m.Clear(col)
	if prev, ok := m.byRole[role]; ok {
		delete(m.byCol, prev)
		delete(m.byRole, role)
	}

	switch role {
	case RoleDate:
		m.clearRole(RoleDay)
		m.clearRole(RoleMonth)
	case RoleDay, RoleMonth:
		m.clearRole(RoleDate)
	}

	m.byRole[role] = col
	m.byCol[col] = role
}

// Clear releases whatever role col holds.
func (m *RoleMap) Clear(col int) {
	if role, ok := m.byCol[col]; ok {
		delete(m.byRole, role)
		delete(m.byCol, col)
	}
}

func (m *RoleMap) clearRole(role Role) {
	if col, ok := m.byRole[role]; ok {
		delete(m.byCol, col)
		delete(m.byRole, role)
	}
}

// Has reports whether role is mapped.
func (m *RoleMap) Has(role Role) bool {
	_, ok := m.byRole[role]
	return ok
}

// IndexOf returns the column bound to role.
func (m *RoleMap) IndexOf(role Role) (int, bool) {
	col, ok := m.byRole[role]
	return col, ok
}

// RoleAt returns the role bound to col.
func (m *RoleMap) RoleAt(col int) (Role, bool) {
	role, ok := m.byCol[col]
	return role, ok
}

// Len returns the number of mapped roles.
func (m *RoleMap) Len() int {
	return len(m.byRole)
}

// Ready checks the roles required to export: a date (Day and Month, or
// Date), a Start and an Event.
func (m *RoleMap) Ready() error {
	return requireColumns(m)
}

func requireColumns(cols Columns) error {
	var missing []string
	if !(cols.Has(RoleDay) && cols.Has(RoleMonth)) && !cols.Has(RoleDate) {
		missing = append(missing, string(RoleDate)+" (or "+string(RoleDay)+"+"+string(RoleMonth)+")")
	}
	if !cols.Has(RoleStart) {
		missing = append(missing, string(RoleStart))
	}
	if !cols.Has(RoleEvent) {
		missing = append(missing, string(RoleEvent))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrColumnsIncomplete, strings.Join(missing, ", "))
	}
	return nil
}
