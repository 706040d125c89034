package shutdown

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/pkg/lifecycle"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = time.Second
)

// Coordinator 先停止HTTP服务器，再分两个阶段停止后台服务，
// 最后释放存储。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager
	closers         []func() error
}

func NewCoordinator(graceful, forceful *lifecycle.Manager) *Coordinator {
	return &Coordinator{GracefulManager: graceful, ForcefulManager: forceful}
}

// OnClose 注册一个在最后按注册顺序执行的释放步骤。
func (c *Coordinator) OnClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// ListenForSignalsAndShutdown 阻塞直到收到 SIGINT 或 SIGTERM，然后执行停机。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("shutdown: signal received")
	c.Shutdown(server)
}

// Shutdown 执行完整的停机流程。
func (c *Coordinator) Shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown: http server: %v", err)
	} else {
		log.Println("shutdown: http server stopped")
	}

	c.GracefulManager.Shutdown()
	if remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout); len(remaining) > 0 {
		log.Printf("shutdown: %v still running after %s, forcing", remaining, gracefulTimeout)
		c.ForcefulManager.Shutdown()
		c.ForcefulManager.WaitWithTimeout(forcefulTimeout)
	}

	for _, fn := range c.closers {
		if err := fn(); err != nil {
			log.Printf("shutdown: release: %v", err)
		}
	}
	log.Println("shutdown: complete")
}
