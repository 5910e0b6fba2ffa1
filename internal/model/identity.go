package model

import "strings"

// Role 会话角色
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// ParseRole 大小写不敏感，未知值按普通员工处理
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleEmployee
	}
}

// CanManage 管理员和经理可以查看员工目录、审批请假
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

// Identity 当前登录会话的身份快照，登录成功后写入本地偏好存储
type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Avatar     string `json:"avatar,omitempty"`
	IsActive   bool   `json:"is_active"`
}

// Clone 返回副本，避免调用方修改共享状态
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
