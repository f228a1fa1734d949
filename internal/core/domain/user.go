package domain

import "time"

// Role is the access level carried by a user and by its tokens.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleEmployee   Role = "EMPLOYEE"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleSuperAdmin:
		return true
	}
	return false
}

// EmploymentStatus is stored upper-cased; search matches it by equality.
type EmploymentStatus string

const (
	StatusActive     EmploymentStatus = "ACTIVE"
	StatusProbation  EmploymentStatus = "PROBATION"
	StatusTerminated EmploymentStatus = "TERMINATED"
)

type Department struct {
	ID   string `json:"id" bson:"_id,omitempty"`
	Name string `json:"name" bson:"name"`
	Code string `json:"code,omitempty" bson:"code,omitempty"`
}

type Position struct {
	ID         string  `json:"id" bson:"_id,omitempty"`
	Name       string  `json:"name" bson:"name"`
	BaseSalary float64 `json:"base_salary,omitempty" bson:"base_salary,omitempty"`
}

type Allowance struct {
	ID     string  `json:"id" bson:"_id,omitempty"`
	Name   string  `json:"name" bson:"name"`
	Amount float64 `json:"amount" bson:"amount"`
}

type EmployeeAllowance struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	UserID      string     `json:"user_id" bson:"user_id"`
	AllowanceID string     `json:"allowance_id" bson:"allowance_id"`
	Allowance   *Allowance `json:"allowance,omitempty" bson:"allowance,omitempty"`
}

type Deduction struct {
	ID     string  `json:"id" bson:"_id,omitempty"`
	Name   string  `json:"name" bson:"name"`
	Amount float64 `json:"amount" bson:"amount"`
}

type EmployeeDeduction struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	UserID      string     `json:"user_id" bson:"user_id"`
	DeductionID string     `json:"deduction_id" bson:"deduction_id"`
	Deduction   *Deduction `json:"deduction,omitempty" bson:"deduction,omitempty"`
}

type Payroll struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Period    string    `json:"period" bson:"period"`
	NetSalary float64   `json:"net_salary" bson:"net_salary"`
	PaidAt    time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
}

// User models an employee or administrator. Users are soft-deleted: DeletedAt is
// set and the row is hidden from every lookup, but never removed.
type User struct {
	ID                 string              `json:"id"`
	FirstName          string              `json:"first_name"`
	LastName           string              `json:"last_name"`
	Email              string              `json:"email"`
	PasswordHash       string              `json:"-"`
	Role               Role                `json:"role"`
	EmploymentStatus   EmploymentStatus    `json:"employment_status,omitempty"`
	DepartmentID       string              `json:"department_id,omitempty"`
	PositionID         string              `json:"position_id,omitempty"`
	Metadata           map[string]any      `json:"metadata,omitempty"`
	Department         *Department         `json:"department,omitempty"`
	Position           *Position           `json:"position,omitempty"`
	EmployeeAllowances []EmployeeAllowance `json:"employee_allowances,omitempty"`
	EmployeeDeductions []EmployeeDeduction `json:"employee_deductions,omitempty"`
	Payroll            []Payroll           `json:"payroll,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	DeletedAt          *time.Time          `json:"deleted_at,omitempty"`
}

// PositionName returns the position name or "" when the user has none.
func (u *User) PositionName() string {
	if u.Position == nil {
		return ""
	}
	return u.Position.Name
}
