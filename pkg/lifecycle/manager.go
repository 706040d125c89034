package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Manager 向各个后台服务分发句柄(Handle)，并等待它们退出。
type Manager struct {
	name     string
	wg       sync.WaitGroup
	mu       sync.Mutex
	services map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(name string) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		name:     name,
		services: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NewServiceHandle 以唯一的名字为一个服务注册并创建句柄(Handle)。
func (m *Manager) NewServiceHandle(service string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.services[service]; exists {
		return nil, fmt.Errorf("lifecycle %s: service %q already registered", m.name, service)
	}
	m.services[service] = struct{}{}
	m.wg.Add(1)
	log.Printf("lifecycle %s: service [%s] registered", m.name, service)

	return &Handle{
		name: service,
		ctx:  m.ctx,
		close: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, exists := m.services[service]; !exists {
				return
			}
			delete(m.services, service)
			m.wg.Done()
		},
	}, nil
}

// Shutdown 取消所有句柄的上下文。
func (m *Manager) Shutdown() {
	log.Printf("lifecycle %s: broadcasting stop", m.name)
	m.cancel()
}

// WaitWithTimeout 等待所有已注册的服务完成，直到指定的超时。
// 返回仍在运行的服务名（已排序）。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		remaining := make([]string, 0, len(m.services))
		for name := range m.services {
			remaining = append(remaining, name)
		}
		sort.Strings(remaining)
		return remaining
	}
}
