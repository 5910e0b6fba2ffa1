package model

import (
	"strconv"
	"strings"
)

// 系统设置键
const (
	SettingShiftStart    = "shift_start_time"
	SettingShiftEnd      = "shift_end_time"
	SettingRequiredHours = "required_work_hours"
	SettingSMTPHost      = "smtp_host"
	SettingSMTPPort      = "smtp_port"
	SettingSMTPUser      = "smtp_user"
	SettingSMTPPass      = "smtp_pass"
	SettingSMTPFromName  = "smtp_from_name"
)

// 设置缺失时的默认值
const (
	DefaultShiftStart    = "09:00"
	DefaultShiftEnd      = "18:00"
	DefaultRequiredHours = 8.0
)

// SMTPKeys 允许通过设置页修改的 SMTP 键
var SMTPKeys = []string{SettingSMTPHost, SettingSMTPPort, SettingSMTPUser, SettingSMTPPass, SettingSMTPFromName}

// Settings 系统设置，键值开放
type Settings map[string]string

// Get 读取设置，空值返回 def
func (s Settings) Get(key, def string) string {
	if s == nil {
		return def
	}
	if v := strings.TrimSpace(s[key]); v != "" {
		return v
	}
	return def
}

// RequiredHours 每日要求工时
func (s Settings) RequiredHours() float64 {
	v, err := strconv.ParseFloat(s.Get(SettingRequiredHours, ""), 64)
	if err != nil || v <= 0 {
		return DefaultRequiredHours
	}
	return v
}

// SMTP SMTP 中继配置
type SMTP struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"-"`
	FromName string `json:"from_name"`
	Port     int    `json:"port"`
}

// Configured 主机为空视为未配置
func (c SMTP) Configured() bool {
	return c.Host != ""
}

// SMTP 从设置中取出中继配置
func (s Settings) SMTP() SMTP {
	port, err := strconv.Atoi(s.Get(SettingSMTPPort, "587"))
	if err != nil {
		port = 587
	}
	return SMTP{
		Host:     s.Get(SettingSMTPHost, ""),
		Port:     port,
		User:     s.Get(SettingSMTPUser, ""),
		Password: s.Get(SettingSMTPPass, ""),
		FromName: s.Get(SettingSMTPFromName, "Attendify"),
	}
}

// Clone 复制设置
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
