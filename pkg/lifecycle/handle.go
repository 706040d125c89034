package lifecycle

import (
	"context"
	"time"
)

// Handle 是分发给每个后台服务的生命周期控制器。
// 服务通过 Done 监听停机信号，并在退出前调用一次 Close。
type Handle struct {
	name  string
	ctx   context.Context
	close func()
}

func (h *Handle) Name() string {
	return h.name
}

// Ctx 返回Handle内部的ctx，Manager停机时被取消。
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Close 通知Manager该服务已经完成关闭，重复调用会被忽略。
func (h *Handle) Close() {
	h.close()
}

// Sleep 暂停指定的时长，但如果生命周期句柄被取消，则会提前返回错误。
// 这是所有后台循环中推荐使用的休眠方法。
func (h *Handle) Sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.Done():
		return h.Err()
	case <-timer.C:
		return nil
	}
}
