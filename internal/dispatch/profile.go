package dispatch

import (
	"context"
	"strings"

	"Attendify/internal/gateway"
	"Attendify/internal/normalize"
	"Attendify/pkg/errors"
)

// MinPasswordLength 新密码最短长度
const MinPasswordLength = 6

// PasswordInput 修改密码表单
type PasswordInput struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
	Confirm string `json:"confirm_password"`
}

// UpdatePassword 本地校验两次输入一致且长度足够后提交
func (d *Dispatcher) UpdatePassword(ctx context.Context, in PasswordInput) error {
	ident, err := d.identity()
	if err != nil {
		return err
	}
	if in.New != in.Confirm {
		return errors.Validation("confirm_password", "New passwords do not match")
	}
	if len(in.New) < MinPasswordLength {
		return errors.Validation("new_password", "Password must be at least %d characters", MinPasswordLength)
	}
	fields := gateway.Fields{
		"user_id":          ident.ID,
		"current_password": in.Current,
		"new_password":     in.New,
	}
	return d.run(ctx, "update_password", prefixError, func(ctx context.Context) error {
		_, err := d.gw.UpdatePassword(ctx, fields)
		return err
	}, message("Password updated."))
}

// UpdateAvatar 上传头像。远端返回的地址优先，其次使用提交的值
func (d *Dispatcher) UpdateAvatar(ctx context.Context, avatar string) (string, error) {
	ident, err := d.identity()
	if err != nil {
		return "", err
	}
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return "", errors.Validation("avatar", "Avatar is required")
	}

	stored := avatar
	err = d.run(ctx, "update_avatar", prefixError, func(ctx context.Context) error {
		data, err := d.gw.UpdateAvatar(ctx, ident.ID, avatar)
		if err != nil {
			return err
		}
		if r, ok := data.(normalize.Record); ok {
			if v := normalize.String(r["avatar"]); v != "" {
				stored = v
			}
		}
		d.session.SetAvatar(ctx, stored)
		return nil
	}, message("Profile photo updated."))
	if err != nil {
		return "", err
	}
	return stored, nil
}
