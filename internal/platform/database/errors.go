package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const (
	readMaxRetry   = 3
	readRetryDelay = 50 * time.Millisecond
)

// IsDuplicateKeyError 判断err是否为唯一键或主键冲突。
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsRetryableError 判断err是否为可重试的临时错误，
// 例如锁竞争、序列化冲突或连接断开。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}

// RetryRead 执行只读查询，遇到可重试的错误时按线性退避重试。
// 写操作不能使用它。
func RetryRead(ctx context.Context, read func() error) error {
	var err error
	for attempt := 1; attempt <= readMaxRetry; attempt++ {
		err = read()
		if err == nil || !IsRetryableError(err) {
			return err
		}
		if attempt == readMaxRetry {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readRetryDelay * time.Duration(attempt)):
		}
	}
	return err
}
