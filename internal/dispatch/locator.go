package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/model"
)

// LocateTimeout 获取位置的最长等待时间
const LocateTimeout = 5 * time.Second

// Locator 签到签退时获取当前位置
type Locator interface {
	Locate(ctx context.Context) (*model.GeoPoint, error)
}

// LocatorFunc 函数适配
type LocatorFunc func(ctx context.Context) (*model.GeoPoint, error)

func (f LocatorFunc) Locate(ctx context.Context) (*model.GeoPoint, error) {
	return f(ctx)
}

// FixedLocator 固定坐标，来自配置
func FixedLocator(lat, lng float64) Locator {
	return LocatorFunc(func(context.Context) (*model.GeoPoint, error) {
		return &model.GeoPoint{Lat: lat, Lng: lng}, nil
	})
}

// locate 定位失败或超时不影响签到，只是不带坐标
func (d *Dispatcher) locate(ctx context.Context) *model.GeoPoint {
	if d.locator == nil {
		return nil
	}
	lctx, cancel := context.WithTimeout(ctx, LocateTimeout)
	defer cancel()

	type result struct {
		point *model.GeoPoint
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := d.locator.Locate(lctx)
		ch <- result{point: p, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			d.logger.Info("Location unavailable", zap.Error(r.err))
			return nil
		}
		return r.point
	case <-lctx.Done():
		d.logger.Info("Location lookup timed out")
		return nil
	}
}
