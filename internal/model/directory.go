package model

// Department 部门
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Employee 员工目录条目
type Employee struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	Department   string `json:"department"`
	DepartmentID string `json:"department_id,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// FindDepartment 按名称查找部门
func FindDepartment(departments []Department, name string) (Department, bool) {
	for _, d := range departments {
		if d.Name == name {
			return d, true
		}
	}
	return Department{}, false
}
