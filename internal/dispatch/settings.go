package dispatch

import (
	"context"
	"strconv"
	"strings"

	"Attendify/internal/derived"
	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

func validateSetting(key, value string) error {
	switch key {
	case model.SettingShiftStart, model.SettingShiftEnd:
		if _, ok := derived.ParseClock(value); !ok {
			return errors.Validation(key, "Time must be HH:MM")
		}
	case model.SettingRequiredHours:
		h, err := strconv.ParseFloat(value, 64)
		if err != nil || h <= 0 || h > 24 {
			return errors.Validation(key, "Required hours must be between 0 and 24")
		}
	case model.SettingSMTPPort:
		p, err := strconv.Atoi(value)
		if err != nil || p <= 0 || p > 65535 {
			return errors.Validation(key, "SMTP port must be a valid port number")
		}
	case model.SettingSMTPHost, model.SettingSMTPUser, model.SettingSMTPPass, model.SettingSMTPFromName:
	default:
		return errors.Validation("key", "Unknown setting %q", key)
	}
	return nil
}

// UpdateSetting 修改班次时间、要求工时或 SMTP 中继配置。
// SMTP 键静默保存，不发布成功提示。
func (d *Dispatcher) UpdateSetting(ctx context.Context, key, value string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if err := validateSetting(key, value); err != nil {
		return err
	}

	success := "Setting updated."
	for _, k := range model.SMTPKeys {
		if k == key {
			success = ""
		}
	}
	return d.run(ctx, "update_setting", prefixError, func(ctx context.Context) error {
		_, err := d.gw.UpdateSetting(ctx, key, value)
		return err
	}, message(success))
}
