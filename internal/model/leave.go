package model

import "time"

// LeaveType 请假类型
type LeaveType string

const (
	LeaveSick   LeaveType = "SICK"
	LeaveCasual LeaveType = "CASUAL"
	LeavePaid   LeaveType = "PAID"
	LeaveUnpaid LeaveType = "UNPAID"
)

// LeaveTypes 所有合法的请假类型
var LeaveTypes = []LeaveType{LeaveSick, LeaveCasual, LeavePaid, LeaveUnpaid}

// Valid 是否为已知类型
func (t LeaveType) Valid() bool {
	for _, lt := range LeaveTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// LeaveStatus 审批状态
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "PENDING"
	LeaveApproved LeaveStatus = "APPROVED"
	LeaveRejected LeaveStatus = "REJECTED"
)

// Valid 是否为已知状态
func (s LeaveStatus) Valid() bool {
	return s == LeavePending || s == LeaveApproved || s == LeaveRejected
}

// LeaveRequest 请假申请，EndDate 为闭区间
type LeaveRequest struct {
	StartDate time.Time   `json:"start_date"`
	EndDate   time.Time   `json:"end_date"`
	AppliedOn time.Time   `json:"applied_on"`
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Type      LeaveType   `json:"type"`
	Reason    string      `json:"reason"`
	Status    LeaveStatus `json:"status"`
}

// LeavePolicy 年度额度，UNPAID 不参与余额计算
type LeavePolicy struct {
	ID          string    `json:"id"`
	LeaveType   LeaveType `json:"leave_type"`
	DisplayName string    `json:"display_name"`
	Allowance   int       `json:"allowance"`
}
