package dispatch

import (
	"context"
	"fmt"
	"strings"

	"Attendify/internal/gateway"
	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// EmployeeInput 员工表单，Department 为部门名称
type EmployeeInput struct {
	IsActive   *bool  `json:"is_active,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Password   string `json:"password,omitempty"`
}

// employeeFields 部门名称转换为远端需要的 department_id，找不到的部门不提交
func (d *Dispatcher) employeeFields(in EmployeeInput) gateway.Fields {
	fields := gateway.Fields{
		"name":  strings.TrimSpace(in.Name),
		"email": strings.TrimSpace(in.Email),
		"role":  string(model.ParseRole(in.Role)),
	}
	if dept, ok := model.FindDepartment(d.snapshot().Departments, in.Department); ok {
		fields["department_id"] = dept.ID
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.Password != "" {
		fields["password"] = in.Password
	}
	return fields
}

func (in EmployeeInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.Validation("name", "Name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return errors.Validation("email", "A valid email is required")
	}
	return nil
}

// AddEmployee 新建员工
func (d *Dispatcher) AddEmployee(ctx context.Context, in EmployeeInput) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}
	fields := d.employeeFields(in)
	return d.run(ctx, "add_employee", prefixError, func(ctx context.Context) error {
		_, err := d.gw.AddEmployee(ctx, fields)
		return err
	}, message(fmt.Sprintf("Employee %s created.", strings.TrimSpace(in.Name))))
}

// UpdateEmployee 修改员工资料
func (d *Dispatcher) UpdateEmployee(ctx context.Context, id string, in EmployeeInput) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.Validation("id", "Employee id is required")
	}
	if err := in.validate(); err != nil {
		return err
	}
	fields := d.employeeFields(in)
	return d.run(ctx, "update_employee", prefixError, func(ctx context.Context) error {
		_, err := d.gw.UpdateEmployee(ctx, id, fields)
		return err
	}, message("Profile updated."))
}

// DeleteEmployee 删除账号属于破坏性操作，必须显式确认
func (d *Dispatcher) DeleteEmployee(ctx context.Context, id string, confirm bool) error {
	ident, err := d.identity()
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.Validation("id", "Employee id is required")
	}
	if id == ident.ID {
		return errors.Validation("id", "You cannot remove your own account")
	}
	if !confirm {
		return &errors.ConfirmationError{Action: "Account deletion"}
	}
	return d.run(ctx, "delete_employee", prefixError, func(ctx context.Context) error {
		_, err := d.gw.DeleteEmployee(ctx, id)
		return err
	}, message("User removed."))
}

// AddDepartment 新建部门
func (d *Dispatcher) AddDepartment(ctx context.Context, name string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Validation("name", "Department name is required")
	}
	if _, exists := model.FindDepartment(d.snapshot().Departments, name); exists {
		return errors.Validation("name", "Department %s already exists", name)
	}
	return d.run(ctx, "add_department", prefixError, func(ctx context.Context) error {
		_, err := d.gw.AddDepartment(ctx, name)
		return err
	}, message("Unit created."))
}

func (d *Dispatcher) department(name string) (model.Department, error) {
	dept, ok := model.FindDepartment(d.snapshot().Departments, name)
	if !ok {
		return model.Department{}, fmt.Errorf("department %s: %w", name, errors.NotFound)
	}
	return dept, nil
}

// RenameDepartment 按名称定位部门后改名
func (d *Dispatcher) RenameDepartment(ctx context.Context, oldName, newName string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.Validation("name", "Department name is required")
	}
	dept, err := d.department(oldName)
	if err != nil {
		return err
	}
	return d.run(ctx, "rename_department", prefixError, func(ctx context.Context) error {
		_, err := d.gw.UpdateDepartment(ctx, dept.ID, newName)
		return err
	}, message("Unit updated."))
}

// DeleteDepartment 按名称删除部门
func (d *Dispatcher) DeleteDepartment(ctx context.Context, name string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	dept, err := d.department(name)
	if err != nil {
		return err
	}
	return d.run(ctx, "delete_department", prefixError, func(ctx context.Context) error {
		_, err := d.gw.DeleteDepartment(ctx, dept.ID)
		return err
	}, message("Unit removed."))
}
